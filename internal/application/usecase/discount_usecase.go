// internal/application/usecase/discount_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	assetdom "storefront/internal/domain/asset"
	discountdom "storefront/internal/domain/discount"
)

// DiscountUsecase orchestrates discount operations. Discounts carry no
// assets, so nothing here touches the blob store.
type DiscountUsecase struct {
	repo discountdom.Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewDiscountUsecase(repo discountdom.Repository, log *zap.Logger) *DiscountUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &DiscountUsecase{
		repo: repo,
		log:  log.Named("discount"),
		now:  time.Now,
	}
}

// =======================
// Queries
// =======================

// List returns every discount, or only those still valid now.
func (u *DiscountUsecase) List(ctx context.Context, activeOnly bool) ([]discountdom.Discount, error) {
	var f discountdom.Filter
	if activeOnly {
		now := u.now().UTC()
		f.ActiveAt = &now
	}
	return u.repo.List(ctx, f)
}

func (u *DiscountUsecase) GetByID(ctx context.Context, id string) (discountdom.Discount, error) {
	return u.repo.GetByID(ctx, strings.TrimSpace(id))
}

// GetByName looks a discount up by its code. An expired discount is
// reported as not found.
func (u *DiscountUsecase) GetByName(ctx context.Context, name string) (discountdom.Discount, error) {
	d, err := u.repo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return discountdom.Discount{}, err
	}
	if !d.ActiveAt(u.now()) {
		return discountdom.Discount{}, fmt.Errorf("%w: %q has expired", discountdom.ErrNotFound, d.Name)
	}
	return d, nil
}

// =======================
// Commands
// =======================

type CreateDiscountInput struct {
	Name       string
	Total      decimal.Decimal
	ValidUntil *time.Time
}

func (u *DiscountUsecase) Create(ctx context.Context, in CreateDiscountInput) (discountdom.Discount, error) {
	d, err := discountdom.New(uuid.NewString(), in.Name, in.Total, in.ValidUntil, u.now())
	if err != nil {
		return discountdom.Discount{}, fmt.Errorf("%w: %w", assetdom.ErrValidation, err)
	}
	created, err := u.repo.Create(ctx, d)
	if err != nil {
		if errors.Is(err, discountdom.ErrConflict) {
			return discountdom.Discount{}, fmt.Errorf("%w: name %q already exists", discountdom.ErrConflict, d.Name)
		}
		return discountdom.Discount{}, err
	}
	u.log.Info("discount created", zap.String("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (u *DiscountUsecase) Delete(ctx context.Context, id string) error {
	if err := u.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	u.log.Info("discount deleted", zap.String("id", id))
	return nil
}

// Update is not offered: a discount is replaced by deleting it and
// creating a new one under the same name.
func (u *DiscountUsecase) Update(context.Context, string) (discountdom.Discount, error) {
	return discountdom.Discount{}, ErrNotSupported("discount.update")
}
