package discount

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain/asset"
)

// フィルタ
type Filter struct {
	ActiveAt *time.Time // validUntil IS NULL OR validUntil > ActiveAt
}

// 代表的なエラー（契約上の表現）
var (
	ErrNotFound = fmt.Errorf("discount: %w", asset.ErrNotFound)
	ErrConflict = fmt.Errorf("discount: %w", asset.ErrConflict)
)

// Repository ポート（契約）
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Discount, error)
	GetByID(ctx context.Context, id string) (Discount, error)
	GetByName(ctx context.Context, name string) (Discount, error)
	Create(ctx context.Context, d Discount) (Discount, error)
	Delete(ctx context.Context, id string) error
}
