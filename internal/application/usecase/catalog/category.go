// internal/application/usecase/catalog/category.go
//
// Responsibility:
// - Category の作成・更新・削除（画像 blob のライフサイクル込み）と参照系。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	assetdom "storefront/internal/domain/asset"
	catdom "storefront/internal/domain/category"
	productdom "storefront/internal/domain/product"
)

// ==============================
// Commands
// ==============================

// CreateCategory uploads the cover image, then writes the row. If the
// row write fails the uploaded blob is deleted before returning.
func (s *Service) CreateCategory(ctx context.Context, name string, image assetdom.File) (CategoryView, error) {
	name = strings.TrimSpace(name)
	if err := catdom.ValidateName(name); err != nil {
		return CategoryView{}, invalid(err)
	}
	// reject known duplicates before uploading; concurrent creates are
	// still caught by the store's unique constraint
	if _, err := s.categories.GetByName(ctx, name); err == nil {
		return CategoryView{}, fmt.Errorf("%w: name %q already exists", catdom.ErrConflict, name)
	} else if !errors.Is(err, catdom.ErrNotFound) {
		return CategoryView{}, err
	}

	key, err := s.assets.UploadOne(ctx, image, assetdom.NamespaceCategories)
	if err != nil {
		return CategoryView{}, err
	}

	c, err := catdom.New("", name, key, s.now())
	if err == nil {
		c, err = s.categories.Create(ctx, c)
	}
	if err != nil {
		s.compensate(ctx, "create category", []string{key}, err)
		if isDomainValidation(err) {
			return CategoryView{}, invalid(err)
		}
		return CategoryView{}, err
	}

	s.log.Info("category created", zap.String("id", c.ID), zap.String("imageKey", key))
	return s.categoryView(ctx, c)
}

// UpdateCategory renames the category and/or swaps its image. The old
// image is deleted only after the row points at the new one; a failure
// there is returned as a *PartialBatchFailure next to the updated view,
// joined with any signing failure of the new image.
func (s *Service) UpdateCategory(ctx context.Context, id string, name *string, image *assetdom.File) (CategoryView, error) {
	cur, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return CategoryView{}, err
	}

	var patch catdom.CategoryPatch
	if name != nil {
		n := strings.TrimSpace(*name)
		if err := catdom.ValidateName(n); err != nil {
			return CategoryView{}, invalid(err)
		}
		patch.Name = &n
	}

	var newKey string
	if image != nil {
		newKey, err = s.assets.UploadOne(ctx, *image, assetdom.NamespaceCategories)
		if err != nil {
			return CategoryView{}, err
		}
		patch.ImageKey = &newKey
	}

	updated, err := s.categories.Update(ctx, cur.ID, patch, nil)
	if err != nil {
		if newKey != "" {
			s.compensate(ctx, "update category", []string{newKey}, err)
		}
		return CategoryView{}, err
	}

	var cleanupErr error
	if newKey != "" && cur.ImageKey != "" && cur.ImageKey != newKey {
		cleanupErr = s.assets.DeleteAssetsOf(ctx, []string{cur.ImageKey})
	}
	view, verr := s.categoryView(ctx, updated)
	return view, errors.Join(cleanupErr, verr)
}

// DeleteCategory removes the row, then its image. A category that still
// has products cannot be deleted (ErrConflict). When the row is gone but
// the image could not be deleted, the removed category is returned with
// a *PartialBatchFailure.
func (s *Service) DeleteCategory(ctx context.Context, id string) (catdom.Category, error) {
	cur, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return catdom.Category{}, err
	}
	if err := s.categories.Delete(ctx, cur.ID); err != nil {
		return catdom.Category{}, err
	}
	s.log.Info("category deleted", zap.String("id", cur.ID))

	if err := s.assets.DeleteAssetsOf(ctx, []string{cur.ImageKey}); err != nil {
		return cur, err
	}
	return cur, nil
}

// ==============================
// Queries
// ==============================

func (s *Service) GetCategory(ctx context.Context, id string) (CategoryView, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return CategoryView{}, err
	}
	return s.categoryView(ctx, c)
}

// ListCategories returns every category sorted by name, optionally
// leaving out the one called excludeName.
func (s *Service) ListCategories(ctx context.Context, excludeName string) ([]CategoryView, error) {
	var f catdom.Filter
	if ex := strings.TrimSpace(excludeName); ex != "" {
		f.ExcludeName = &ex
	}
	res, err := s.categories.List(ctx, f, catdom.Sort{Column: "name"}, catdom.Page{PerPage: 500})
	if err != nil {
		return nil, err
	}
	return s.categoryViews(ctx, res.Items)
}

// CategoryWithProducts returns the category and all of its products.
// Signing failures of the category and of the products are joined.
func (s *Service) CategoryWithProducts(ctx context.Context, id string) (CategoryWithProducts, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return CategoryWithProducts{}, err
	}
	cv, cerr := s.categoryView(ctx, c)
	if !usable(cerr) {
		return CategoryWithProducts{}, cerr
	}
	res, err := s.products.List(ctx,
		productdom.Filter{CategoryID: &c.ID},
		productdom.Sort{Column: "createdAt", Order: "desc"},
		productdom.Page{PerPage: 200},
	)
	if err != nil {
		return CategoryWithProducts{}, err
	}
	pv, perr := s.productViews(ctx, res.Items)
	if !usable(perr) {
		return CategoryWithProducts{}, perr
	}
	return CategoryWithProducts{Category: cv, Products: pv}, errors.Join(cerr, perr)
}

// ==============================
// helpers
// ==============================

// compensate deletes blobs written for a row write that failed.
func (s *Service) compensate(ctx context.Context, op string, keys []string, cause error) {
	left := s.assets.Discard(ctx, keys)
	fields := []zap.Field{
		zap.String("op", op),
		zap.Strings("keys", keys),
		zap.NamedError("cause", cause),
	}
	if len(left) > 0 {
		s.log.Error("row write failed; orphaned uploads", append(fields, zap.Strings("orphans", left))...)
		return
	}
	s.log.Warn("row write failed; uploads discarded", fields...)
}

func isDomainValidation(err error) bool {
	for _, e := range []error{
		catdom.ErrInvalidName, catdom.ErrInvalidImageKey,
		productdom.ErrInvalidName, productdom.ErrInvalidPrice, productdom.ErrInvalidCategoryID,
		productdom.ErrInvalidQuality, productdom.ErrNoImages,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
