// internal/domain/category/repository_port.go
package category

import (
	"context"
	"fmt"

	"storefront/internal/domain/asset"
	common "storefront/internal/domain/common"
)

// Patch（部分更新）: nil のフィールドは更新しない
type CategoryPatch struct {
	Name     *string
	ImageKey *string
}

// Filter
type Filter struct {
	IDs         []string
	Name        *string
	ExcludeName *string
}

type (
	Sort              = common.Sort
	Page              = common.Page
	PageResult[T any] = common.PageResult[T]
	SaveOptions       = common.SaveOptions
)

// 代表的なエラー（契約上の表現）
var (
	ErrNotFound = fmt.Errorf("category: %w", asset.ErrNotFound)
	ErrConflict = fmt.Errorf("category: %w", asset.ErrConflict)
)

// Repository ポート（契約）
//
// Delete returns ErrConflict when products still reference the category
// (referential integrity is the store's policy).
type Repository interface {
	common.RepositoryCRUD[Category, CategoryPatch]
	common.RepositoryList[Category, Filter]
	GetByName(ctx context.Context, name string) (Category, error)
}
