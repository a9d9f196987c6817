// internal/application/usecase/catalog/views.go
package catalog

import (
	"context"

	assetdom "storefront/internal/domain/asset"
	catdom "storefront/internal/domain/category"
	productdom "storefront/internal/domain/product"
)

// View builders sign every key of the rows they are given. A key that
// cannot be signed keeps an empty URL and the builder returns the views
// together with the *PartialBatchFailure (Op="resolve") naming it. Any
// other error means there are no views.

// usable reports whether views built alongside err can still be served.
func usable(err error) bool {
	_, ok := assetdom.OnlyPartial(err)
	return err == nil || ok
}

func (s *Service) categoryViews(ctx context.Context, cats []catdom.Category) ([]CategoryView, error) {
	keys := make([]string, len(cats))
	for i, c := range cats {
		keys[i] = c.ImageKey
	}
	urls, err := s.assets.ResolveURLs(ctx, keys)
	if !usable(err) {
		return nil, err
	}
	out := make([]CategoryView, len(cats))
	for i, c := range cats {
		out[i] = CategoryView{Category: c, Image: urls[i]}
	}
	return out, err
}

func (s *Service) categoryView(ctx context.Context, c catdom.Category) (CategoryView, error) {
	views, err := s.categoryViews(ctx, []catdom.Category{c})
	if views == nil {
		return CategoryView{}, err
	}
	return views[0], err
}

// productViews signs every image of every product in a single batch.
func (s *Service) productViews(ctx context.Context, ps []productdom.Product) ([]ProductView, error) {
	var keys []string
	for _, p := range ps {
		keys = append(keys, p.ImageKeys...)
	}
	urls, err := s.assets.ResolveURLs(ctx, keys)
	if !usable(err) {
		return nil, err
	}
	out := make([]ProductView, len(ps))
	next := 0
	for i, p := range ps {
		n := len(p.ImageKeys)
		out[i] = ProductView{Product: p, Images: urls[next : next+n : next+n]}
		next += n
	}
	return out, err
}

func (s *Service) productView(ctx context.Context, p productdom.Product) (ProductView, error) {
	views, err := s.productViews(ctx, []productdom.Product{p})
	if views == nil {
		return ProductView{}, err
	}
	return views[0], err
}
