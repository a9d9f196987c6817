// internal/application/usecase/catalog/product.go
//
// Responsibility:
// - Product の作成・更新・削除（画像 blob のライフサイクル込み）と参照系。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	assetuc "storefront/internal/application/usecase/asset"
	assetdom "storefront/internal/domain/asset"
	catdom "storefront/internal/domain/category"
	productdom "storefront/internal/domain/product"
)

// ==============================
// Commands
// ==============================

// CreateProduct uploads every image (all or nothing), then writes the
// row. If the row write fails every uploaded blob is deleted before the
// error is returned.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput, images []assetdom.File) (ProductView, error) {
	if len(images) == 0 {
		return ProductView{}, invalid(productdom.ErrNoImages)
	}
	if len(images) > productdom.MaxImages {
		return ProductView{}, assetdom.Validationf("at most %d images, got %d", productdom.MaxImages, len(images))
	}

	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}
	p := productdom.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		CategoryID:  strings.TrimSpace(in.CategoryID),
		Tags:        productdom.NormalizeTags(in.Tags),
		Notes:       productdom.NormalizeNotes(in.Notes),
		Quality:     in.Quality,
		IsAvailable: available,
		CreatedAt:   s.now().UTC(),
	}
	if p.Quality == "" {
		p.Quality = productdom.QualityStandard
	}
	// validate everything but the images before uploading
	draft := p
	draft.ImageKeys = []string{"pending"}
	if err := draft.Validate(); err != nil {
		return ProductView{}, invalid(err)
	}
	if err := s.requireCategory(ctx, p.CategoryID); err != nil {
		return ProductView{}, err
	}

	keys, err := s.assets.UploadMany(ctx, images, assetdom.NamespaceProducts)
	if err != nil {
		return ProductView{}, err
	}
	p.ImageKeys = keys

	created, err := s.products.Create(ctx, p)
	if err != nil {
		s.compensate(ctx, "create product", keys, err)
		return ProductView{}, err
	}

	s.log.Info("product created", zap.String("id", created.ID), zap.Strings("imageKeys", keys))
	return s.productView(ctx, created)
}

// UpdateProduct applies in.Patch and the image change described by
// in.Images / in.Mode in one row write.
//
// The write is guarded by the product's version (in.IfMatchVersion, or
// the version just read), so a concurrent update makes it fail with
// ErrConflict instead of overwriting the other image list. On any row
// write failure the new uploads are deleted. Dropped images are deleted
// only after the write succeeded and before the view is built; if that
// fails the updated view is returned together with a *PartialBatchFailure.
func (s *Service) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (ProductView, error) {
	cur, err := s.products.GetByID(ctx, id)
	if err != nil {
		return ProductView{}, err
	}

	expected := cur.Version
	if in.IfMatchVersion != nil {
		if *in.IfMatchVersion != cur.Version {
			return ProductView{}, fmt.Errorf("%w: version is %d, expected %d",
				productdom.ErrConflict, cur.Version, *in.IfMatchVersion)
		}
		expected = *in.IfMatchVersion
	}

	patch := normalizePatch(in.Patch)
	patch.ImageKeys = nil
	if err := patch.Apply(cur).Validate(); err != nil {
		return ProductView{}, invalid(err)
	}
	if patch.CategoryID != nil && *patch.CategoryID != cur.CategoryID {
		if err := s.requireCategory(ctx, *patch.CategoryID); err != nil {
			return ProductView{}, err
		}
	}

	var upd *assetuc.ImageUpdate
	if len(in.Images) > 0 || in.Mode == assetuc.ModeReplace {
		mode := in.Mode
		if mode == 0 {
			mode = assetuc.ModeAppend
		}
		if err := checkImageCount(len(cur.ImageKeys), len(in.Images), mode); err != nil {
			return ProductView{}, err
		}
		upd, err = s.assets.ReplaceOrAppendImages(ctx, cur.ImageKeys, in.Images, mode, assetdom.NamespaceProducts)
		if err != nil {
			return ProductView{}, err
		}
		keys := upd.Keys
		patch.ImageKeys = &keys
	}

	updated, err := s.products.Update(ctx, cur.ID, patch, &productdom.SaveOptions{IfMatchVersion: &expected})
	if err != nil {
		if upd != nil {
			left := upd.Rollback(ctx)
			s.log.Warn("product update failed; new images discarded",
				zap.String("id", cur.ID),
				zap.Strings("uploaded", upd.Uploaded),
				zap.Strings("orphans", left),
				zap.Error(err),
			)
		}
		return ProductView{}, err
	}

	var cleanupErr error
	if upd != nil {
		cleanupErr = upd.Commit(ctx)
	}
	view, verr := s.productView(ctx, updated)
	return view, errors.Join(cleanupErr, verr)
}

// RemoveProductImage drops one image from the list, then deletes its
// blob. The last image of a product cannot be removed.
func (s *Service) RemoveProductImage(ctx context.Context, id, key string) (ProductView, error) {
	cur, err := s.products.GetByID(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	key = strings.TrimSpace(key)

	rest := make([]string, 0, len(cur.ImageKeys))
	found := false
	for _, k := range cur.ImageKeys {
		if k == key {
			found = true
			continue
		}
		rest = append(rest, k)
	}
	if !found {
		return ProductView{}, fmt.Errorf("%w: image %q", productdom.ErrNotFound, key)
	}
	if len(rest) == 0 {
		return ProductView{}, invalid(productdom.ErrNoImages)
	}

	v := cur.Version
	updated, err := s.products.Update(ctx, cur.ID,
		productdom.ProductPatch{ImageKeys: &rest},
		&productdom.SaveOptions{IfMatchVersion: &v},
	)
	if err != nil {
		return ProductView{}, err
	}

	cleanupErr := s.assets.DeleteAssetsOf(ctx, []string{key})
	view, verr := s.productView(ctx, updated)
	return view, errors.Join(cleanupErr, verr)
}

// DeleteProduct removes a product.
//
//   - DeleteSoft marks it unavailable; the row still references its
//     images so nothing is deleted from the blob store.
//   - DeleteHard removes the row first, then its images. If some images
//     could not be deleted the removed product is returned with a
//     *PartialBatchFailure listing them.
func (s *Service) DeleteProduct(ctx context.Context, id string, mode DeleteMode) (productdom.Product, error) {
	cur, err := s.products.GetByID(ctx, id)
	if err != nil {
		return productdom.Product{}, err
	}

	if mode == DeleteSoft {
		off := false
		v := cur.Version
		return s.products.Update(ctx, cur.ID,
			productdom.ProductPatch{IsAvailable: &off},
			&productdom.SaveOptions{IfMatchVersion: &v},
		)
	}

	if err := s.products.Delete(ctx, cur.ID); err != nil {
		return productdom.Product{}, err
	}
	s.log.Info("product deleted", zap.String("id", cur.ID), zap.Int("images", len(cur.ImageKeys)))

	if err := s.assets.DeleteAssetsOf(ctx, cur.ImageKeys); err != nil {
		return cur, err
	}
	return cur, nil
}

// ==============================
// Queries
// ==============================

func (s *Service) GetProduct(ctx context.Context, id string) (ProductView, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	return s.productView(ctx, p)
}

// ListProducts lists products newest first. Images that could not be
// signed are reported in a *PartialBatchFailure next to the page.
func (s *Service) ListProducts(ctx context.Context, q ProductQuery) (productdom.PageResult[ProductView], error) {
	var f productdom.Filter
	if v := strings.TrimSpace(q.CategoryID); v != "" {
		f.CategoryID = &v
	}
	if v := strings.TrimSpace(q.ExcludeID); v != "" {
		f.ExcludeID = &v
	}
	f.OnlyAvailable = q.OnlyAvailable

	res, err := s.products.List(ctx, f,
		productdom.Sort{Column: "createdAt", Order: "desc"},
		productdom.Page{Number: q.Page, PerPage: q.Limit},
	)
	if err != nil {
		return productdom.PageResult[ProductView]{}, err
	}
	views, err := s.productViews(ctx, res.Items)
	if !usable(err) {
		return productdom.PageResult[ProductView]{}, err
	}
	return productdom.PageResult[ProductView]{
		Items:      views,
		TotalCount: res.TotalCount,
		TotalPages: res.TotalPages,
		Page:       res.Page,
		PerPage:    res.PerPage,
	}, err
}

// CartImage returns the signed URL of the product's cover image. A
// signing failure is returned as the store's error.
func (s *Service) CartImage(ctx context.Context, id string) (assetdom.SignedURL, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return assetdom.SignedURL{}, err
	}
	cover := p.CoverKey()
	if cover == "" {
		return assetdom.SignedURL{}, fmt.Errorf("%w: product %s has no image", productdom.ErrNotFound, p.ID)
	}
	return s.assets.ResolveURL(ctx, cover)
}

// ==============================
// helpers
// ==============================

func (s *Service) requireCategory(ctx context.Context, id string) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		if errors.Is(err, catdom.ErrNotFound) {
			return assetdom.Validationf("unknown category %q", id)
		}
		return err
	}
	return nil
}

func checkImageCount(existing, inputs int, mode assetuc.Mode) error {
	n := inputs
	if mode == assetuc.ModeAppend {
		n += existing
	}
	if n > productdom.MaxImages {
		return assetdom.Validationf("at most %d images, got %d", productdom.MaxImages, n)
	}
	return nil
}

func normalizePatch(p productdom.ProductPatch) productdom.ProductPatch {
	if p.Name != nil {
		v := strings.TrimSpace(*p.Name)
		p.Name = &v
	}
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		p.Description = &v
	}
	if p.CategoryID != nil {
		v := strings.TrimSpace(*p.CategoryID)
		p.CategoryID = &v
	}
	if p.Tags != nil {
		v := productdom.NormalizeTags(*p.Tags)
		p.Tags = &v
	}
	if p.Notes != nil {
		v := productdom.NormalizeNotes(*p.Notes)
		p.Notes = &v
	}
	return p
}
