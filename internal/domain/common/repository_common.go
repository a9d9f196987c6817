// internal/domain/common/repository_common.go
package common

import (
	"context"
	"time"
)

// Timestamps は作成・更新時刻を共通で保持するための埋め込み用構造体
type Timestamps struct {
	CreatedAt time.Time
	UpdatedAt *time.Time // 未更新なら nil
}

// Sort はソート指定の共通表現
type Sort struct {
	Column string    // 各ドメイン側で許可カラムをバリデート
	Order  SortOrder // 昇順/降順
}

// SortOrder はソート順
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Page はオフセットページング指定
type Page struct {
	Number  int // 1-based
	PerPage int // 0 以下は実装側デフォルト
}

// PageResult はページング結果
type PageResult[T any] struct {
	Items      []T
	TotalCount int
	TotalPages int
	Page       int
	PerPage    int
}

// SaveOptions carries write preconditions.
type SaveOptions struct {
	// IfMatchVersion: when set, the write only applies if the stored row
	// still has this version (otherwise the repository returns its
	// ErrConflict).
	IfMatchVersion *int64
}

// NormalizePage clamps page number / size and returns (page, limit, offset).
func NormalizePage(p Page, defaultPerPage, maxPerPage int) (int, int, int) {
	number := p.Number
	if number <= 0 {
		number = 1
	}
	limit := p.PerPage
	if limit <= 0 {
		limit = defaultPerPage
	}
	if maxPerPage > 0 && limit > maxPerPage {
		limit = maxPerPage
	}
	return number, limit, (number - 1) * limit
}

// TotalPages は合計件数と1ページあたり件数から総ページ数を計算します。
func TotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// RepositoryCRUD は基本的なCRUD操作の共通インターフェース
// P は部分更新のための Patch 型（ドメインごとに定義）
type RepositoryCRUD[T any, P any] interface {
	GetByID(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, id string, patch P, opts *SaveOptions) (T, error)
	Delete(ctx context.Context, id string) error
}

// RepositoryList は Filter + Page を伴う一覧取得の共通インターフェース
type RepositoryList[T any, F any] interface {
	List(ctx context.Context, filter F, sort Sort, page Page) (PageResult[T], error)
}
