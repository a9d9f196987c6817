// internal/domain/category/entity.go
package category

import (
	"errors"
	"strings"
	"time"
)

// Category is a catalog grouping with exactly one cover image.
//
// Invariant: while the row exists, ImageKey references a live blob. The
// asset coordinator enforces this, not the repository.
type Category struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ImageKey  string     `json:"imageKey"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Errors
var (
	ErrInvalidName     = errors.New("category: invalid name")
	ErrInvalidImageKey = errors.New("category: invalid imageKey")
)

// Policy
const MaxNameLength = 120

// New builds a Category with validation.
func New(id, name, imageKey string, createdAt time.Time) (Category, error) {
	c := Category{
		ID:        strings.TrimSpace(id),
		Name:      strings.TrimSpace(name),
		ImageKey:  strings.TrimSpace(imageKey),
		CreatedAt: createdAt.UTC(),
	}
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (c Category) Validate() error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if strings.TrimSpace(c.ImageKey) == "" {
		return ErrInvalidImageKey
	}
	return nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return ErrInvalidName
	}
	return nil
}
