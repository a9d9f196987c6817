// internal/adapters/out/firestore/discount_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	ddom "storefront/internal/domain/discount"
)

// DiscountRepositoryFS is the Firestore implementation of the discount repository.
type DiscountRepositoryFS struct {
	Client *gfs.Client
}

func NewDiscountRepositoryFS(client *gfs.Client) *DiscountRepositoryFS {
	return &DiscountRepositoryFS{Client: client}
}

const discountsCol = "discounts"

type discountDoc struct {
	Name       string    `firestore:"name"`
	Total      string    `firestore:"total"`
	ValidUntil time.Time `firestore:"valid_until,omitempty"`
	CreatedAt  time.Time `firestore:"created_at"`
	UpdatedAt  time.Time `firestore:"updated_at,omitempty"`
}

// =======================
// Queries
// =======================

func (r *DiscountRepositoryFS) List(ctx context.Context, filter ddom.Filter) ([]ddom.Discount, error) {
	if r.Client == nil {
		return nil, errNilClient
	}
	all, err := collect(r.Client.Collection(discountsCol).Documents(ctx), decodeDiscountDoc)
	if err != nil {
		return nil, err
	}

	out := make([]ddom.Discount, 0, len(all))
	for _, d := range all {
		if filter.ActiveAt != nil && !d.ActiveAt(*filter.ActiveAt) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *DiscountRepositoryFS) GetByID(ctx context.Context, id string) (ddom.Discount, error) {
	if r.Client == nil {
		return ddom.Discount{}, errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ddom.Discount{}, ddom.ErrNotFound
	}
	doc, err := r.Client.Collection(discountsCol).Doc(id).Get(ctx)
	if err != nil {
		return ddom.Discount{}, mapErr(err, ddom.ErrNotFound, ddom.ErrConflict)
	}
	return decodeDiscountDoc(doc)
}

func (r *DiscountRepositoryFS) GetByName(ctx context.Context, name string) (ddom.Discount, error) {
	if r.Client == nil {
		return ddom.Discount{}, errNilClient
	}
	iter := r.Client.Collection(discountsCol).Where("name", "==", strings.TrimSpace(name)).Limit(1).Documents(ctx)
	items, err := collect(iter, decodeDiscountDoc)
	if err != nil {
		return ddom.Discount{}, err
	}
	if len(items) == 0 {
		return ddom.Discount{}, ddom.ErrNotFound
	}
	return items[0], nil
}

// =======================
// Mutations
// =======================

func (r *DiscountRepositoryFS) Create(ctx context.Context, in ddom.Discount) (ddom.Discount, error) {
	if r.Client == nil {
		return ddom.Discount{}, errNilClient
	}
	col := r.Client.Collection(discountsCol)

	var ref *gfs.DocumentRef
	if id := strings.TrimSpace(in.ID); id != "" {
		ref = col.Doc(id)
	} else {
		ref = col.NewDoc()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		dup, err := tx.Documents(col.Where("name", "==", strings.TrimSpace(in.Name)).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(dup) > 0 {
			return ddom.ErrConflict
		}
		return tx.Create(ref, encodeDiscountDoc(in))
	})
	if err != nil {
		if errors.Is(err, ddom.ErrConflict) {
			return ddom.Discount{}, ddom.ErrConflict
		}
		return ddom.Discount{}, mapErr(err, ddom.ErrNotFound, ddom.ErrConflict)
	}
	return r.GetByID(ctx, ref.ID)
}

func (r *DiscountRepositoryFS) Delete(ctx context.Context, id string) error {
	if r.Client == nil {
		return errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ddom.ErrNotFound
	}
	_, err := r.Client.Collection(discountsCol).Doc(id).Delete(ctx, gfs.Exists)
	if err != nil {
		return mapErr(err, ddom.ErrNotFound, ddom.ErrConflict)
	}
	return nil
}

// =======================
// Helpers
// =======================

func decodeDiscountDoc(doc *gfs.DocumentSnapshot) (ddom.Discount, error) {
	var raw discountDoc
	if err := doc.DataTo(&raw); err != nil {
		return ddom.Discount{}, err
	}
	total, err := decimal.NewFromString(strings.TrimSpace(raw.Total))
	if err != nil {
		return ddom.Discount{}, fmt.Errorf("discount %s: bad total %q: %w", doc.Ref.ID, raw.Total, err)
	}
	return ddom.Discount{
		ID:         strings.TrimSpace(doc.Ref.ID),
		Name:       strings.TrimSpace(raw.Name),
		Total:      total,
		ValidUntil: timePtr(raw.ValidUntil),
		CreatedAt:  raw.CreatedAt.UTC(),
		UpdatedAt:  timePtr(raw.UpdatedAt),
	}, nil
}

func encodeDiscountDoc(d ddom.Discount) discountDoc {
	out := discountDoc{
		Name:      strings.TrimSpace(d.Name),
		Total:     d.Total.String(),
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.ValidUntil != nil {
		out.ValidUntil = d.ValidUntil.UTC()
	}
	if d.UpdatedAt != nil {
		out.UpdatedAt = d.UpdatedAt.UTC()
	}
	return out
}
