// internal/domain/product/repository_port.go
package product

import (
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain/asset"
	common "storefront/internal/domain/common"
)

// ==============================
// Patch（部分更新）: nil のフィールドは更新しない
// ==============================
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	CategoryID  *string
	ImageKeys   *[]string
	Tags        *[]string
	Notes       *[]string
	Quality     *Quality
	IsAvailable *bool
}

// Empty reports whether the patch changes nothing.
func (pp ProductPatch) Empty() bool {
	return pp.Name == nil && pp.Description == nil && pp.Price == nil &&
		pp.CategoryID == nil && pp.ImageKeys == nil && pp.Tags == nil &&
		pp.Notes == nil && pp.Quality == nil && pp.IsAvailable == nil
}

// Apply returns a copy of p with the patch applied (used by stores that
// cannot express partial updates natively).
func (pp ProductPatch) Apply(p Product) Product {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.CategoryID != nil {
		p.CategoryID = *pp.CategoryID
	}
	if pp.ImageKeys != nil {
		p.ImageKeys = append([]string(nil), (*pp.ImageKeys)...)
	}
	if pp.Tags != nil {
		p.Tags = append([]string(nil), (*pp.Tags)...)
	}
	if pp.Notes != nil {
		p.Notes = append([]string(nil), (*pp.Notes)...)
	}
	if pp.Quality != nil {
		p.Quality = *pp.Quality
	}
	if pp.IsAvailable != nil {
		p.IsAvailable = *pp.IsAvailable
	}
	return p
}

// ==============================
// フィルタ/検索条件
// ==============================
type Filter struct {
	IDs           []string
	CategoryID    *string
	ExcludeID     *string
	OnlyAvailable bool
}

type (
	Sort              = common.Sort
	Page              = common.Page
	PageResult[T any] = common.PageResult[T]
	SaveOptions       = common.SaveOptions
)

var (
	ErrNotFound = fmt.Errorf("product: %w", asset.ErrNotFound)
	// ErrConflict covers both a stale version on Update and a broken
	// category reference on write. Callers may retry a version conflict.
	ErrConflict = fmt.Errorf("product: %w", asset.ErrConflict)
)

// ==============================
// Repository ポート（契約）
// ==============================
//
// Update honours opts.IfMatchVersion; on success the stored Version is
// incremented by one.
type Repository interface {
	common.RepositoryCRUD[Product, ProductPatch]
	common.RepositoryList[Product, Filter]
}
