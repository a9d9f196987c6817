// internal/domain/product/entity.go
package product

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ===============================
// Types
// ===============================

// Quality は商品の品質区分
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityPremium  Quality = "premium"
	QualityDeluxe   Quality = "deluxe"
)

func (q Quality) Valid() bool {
	switch q {
	case "", QualityStandard, QualityPremium, QualityDeluxe:
		return true
	}
	return false
}

// Product エンティティ
//
// ImageKeys order is significant: ImageKeys[0] is the cart/cover image.
// Version increments on every successful update and is the optimistic
// concurrency token for Update.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  string          `json:"categoryId"`
	ImageKeys   []string        `json:"imageKeys"`
	Tags        []string        `json:"tags"`
	Notes       []string        `json:"notes"`
	Quality     Quality         `json:"quality"`
	IsAvailable bool            `json:"isAvailable"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// Errors
var (
	ErrInvalidName       = errors.New("product: invalid name")
	ErrInvalidPrice      = errors.New("product: invalid price")
	ErrInvalidCategoryID = errors.New("product: invalid categoryId")
	ErrInvalidQuality    = errors.New("product: invalid quality")
	ErrNoImages          = errors.New("product: at least one image is required")
)

// Policy
const (
	MaxNameLength = 200
	MaxImages     = 10
)

// CoverKey returns the first image key, or "".
func (p Product) CoverKey() string {
	if len(p.ImageKeys) == 0 {
		return ""
	}
	return p.ImageKeys[0]
}

// Validate checks the row-level invariants.
func (p Product) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return ErrInvalidName
	}
	if p.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if strings.TrimSpace(p.CategoryID) == "" {
		return ErrInvalidCategoryID
	}
	if !p.Quality.Valid() {
		return ErrInvalidQuality
	}
	if len(p.ImageKeys) == 0 {
		return ErrNoImages
	}
	return nil
}

// NormalizeTags trims, drops empties and de-duplicates (tags are a set).
func NormalizeTags(xs []string) []string {
	seen := make(map[string]struct{}, len(xs))
	out := make([]string, 0, len(xs))
	for _, v := range xs {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// NormalizeNotes trims and drops empties; order and duplicates are kept.
func NormalizeNotes(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, v := range xs {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
