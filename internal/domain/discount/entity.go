// internal/domain/discount/entity.go
package discount

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Discount is a named promotion amount (percent), optionally time-boxed.
type Discount struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	ValidUntil *time.Time      `json:"validUntil,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty"`
}

// Errors
var (
	ErrInvalidID    = errors.New("discount: invalid id")
	ErrInvalidName  = errors.New("discount: invalid name")
	ErrInvalidTotal = errors.New("discount: invalid total")
	ErrExpired      = errors.New("discount: validUntil is in the past")
)

// Policy: 0..100%
var (
	MinTotal = decimal.Zero
	MaxTotal = decimal.NewFromInt(100)
)

// New creates a Discount with validation.
func New(id, name string, total decimal.Decimal, validUntil *time.Time, now time.Time) (Discount, error) {
	d := Discount{
		ID:         strings.TrimSpace(id),
		Name:       strings.TrimSpace(name),
		Total:      total,
		ValidUntil: normalizeTime(validUntil),
		CreatedAt:  now.UTC(),
	}
	if err := d.validate(now); err != nil {
		return Discount{}, err
	}
	return d, nil
}

// ActiveAt reports whether the discount applies at t.
func (d Discount) ActiveAt(t time.Time) bool {
	return d.ValidUntil == nil || t.Before(*d.ValidUntil)
}

func (d Discount) validate(now time.Time) error {
	if d.Name == "" || len(d.Name) > 80 {
		return ErrInvalidName
	}
	if d.Total.LessThan(MinTotal) || d.Total.GreaterThan(MaxTotal) {
		return ErrInvalidTotal
	}
	if d.ValidUntil != nil && !d.ValidUntil.After(now) {
		return ErrExpired
	}
	return nil
}

func normalizeTime(p *time.Time) *time.Time {
	if p == nil || p.IsZero() {
		return nil
	}
	t := p.UTC()
	return &t
}
