// internal/application/usecase/catalog/types.go
//
// Responsibility:
// - Catalog facade の「型定義」を集約する（Port / DTO / Service struct）。
// - ビジネス処理は category.go / product.go に置く。
//
// Features:
// - Assets port (implemented by usecase/asset.Coordinator)
// - View DTOs (rows + transient signed URLs)
// - Create / Update inputs
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	assetuc "storefront/internal/application/usecase/asset"
	assetdom "storefront/internal/domain/asset"
	catdom "storefront/internal/domain/category"
	productdom "storefront/internal/domain/product"
)

// ==============================
// Ports
// ==============================

// Assets is the part of the asset coordinator the facade uses.
type Assets interface {
	UploadOne(ctx context.Context, f assetdom.File, ns assetdom.Namespace) (string, error)
	UploadMany(ctx context.Context, files []assetdom.File, ns assetdom.Namespace) ([]string, error)
	ResolveURLs(ctx context.Context, keys []string) ([]assetdom.SignedURL, error)
	ResolveURL(ctx context.Context, key string) (assetdom.SignedURL, error)
	ReplaceOrAppendImages(ctx context.Context, existing []string, inputs []assetdom.UploadInput, mode assetuc.Mode, ns assetdom.Namespace) (*assetuc.ImageUpdate, error)
	DeleteAssetsOf(ctx context.Context, keys []string) error
	Discard(ctx context.Context, keys []string) []string
}

// ==============================
// Views
// ==============================

// CategoryView is a category row plus its transient image URL.
// An unresolved URL is left empty; the key is always present.
type CategoryView struct {
	catdom.Category
	Image assetdom.SignedURL `json:"image"`
}

// ProductView is a product row plus its images as signed URLs, in
// ImageKeys order.
type ProductView struct {
	productdom.Product
	Images []assetdom.SignedURL `json:"images"`
}

// CategoryWithProducts is a category and every product filed under it.
type CategoryWithProducts struct {
	Category CategoryView  `json:"category"`
	Products []ProductView `json:"products"`
}

// ==============================
// Inputs
// ==============================

type CreateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  string
	Tags        []string
	Notes       []string
	Quality     productdom.Quality
	IsAvailable *bool // defaults to true
}

// UpdateProductInput edits a product. Patch.ImageKeys is ignored; image
// changes go through Images and Mode.
type UpdateProductInput struct {
	Patch          productdom.ProductPatch
	Images         []assetdom.UploadInput
	Mode           assetuc.Mode
	IfMatchVersion *int64
}

// DeleteMode selects how DeleteProduct removes a product.
type DeleteMode int

const (
	// DeleteHard removes the row, then its blobs.
	DeleteHard DeleteMode = iota
	// DeleteSoft marks the product unavailable and keeps its blobs.
	DeleteSoft
)

// ProductQuery drives ListProducts.
type ProductQuery struct {
	CategoryID    string
	ExcludeID     string
	OnlyAvailable bool
	Limit         int
	Page          int
}

// ==============================
// Service
// ==============================

// Service is the catalog facade: every operation that touches both the
// catalog rows and the blob store goes through it.
//
// Ordering rules:
//   - uploads happen before the row write; a failed row write deletes
//     the fresh uploads and returns the original error.
//   - row deletion happens before blob deletion.
//   - images dropped by an update are deleted only after the row write
//     is confirmed.
type Service struct {
	categories catdom.Repository
	products   productdom.Repository
	assets     Assets
	log        *zap.Logger
	now        func() time.Time
}

func NewService(categories catdom.Repository, products productdom.Repository, assets Assets, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		categories: categories,
		products:   products,
		assets:     assets,
		log:        log.Named("catalog"),
		now:        time.Now,
	}
}

// invalid tags a domain validation error so the HTTP layer maps it to 400.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", assetdom.ErrValidation, err)
}
