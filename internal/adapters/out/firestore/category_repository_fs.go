// internal/adapters/out/firestore/category_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	gfs "cloud.google.com/go/firestore"

	catdom "storefront/internal/domain/category"
)

// CategoryRepositoryFS is the Firestore implementation of the category repository.
type CategoryRepositoryFS struct {
	Client *gfs.Client
}

func NewCategoryRepositoryFS(client *gfs.Client) *CategoryRepositoryFS {
	return &CategoryRepositoryFS{Client: client}
}

const categoriesCol = "categories"

type categoryDoc struct {
	Name      string    `firestore:"name"`
	ImageKey  string    `firestore:"image_key"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at,omitempty"`
}

// =======================
// Queries
// =======================

func (r *CategoryRepositoryFS) GetByID(ctx context.Context, id string) (catdom.Category, error) {
	if r.Client == nil {
		return catdom.Category{}, errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return catdom.Category{}, catdom.ErrNotFound
	}
	doc, err := r.Client.Collection(categoriesCol).Doc(id).Get(ctx)
	if err != nil {
		return catdom.Category{}, mapErr(err, catdom.ErrNotFound, catdom.ErrConflict)
	}
	return decodeCategoryDoc(doc)
}

func (r *CategoryRepositoryFS) GetByName(ctx context.Context, name string) (catdom.Category, error) {
	if r.Client == nil {
		return catdom.Category{}, errNilClient
	}
	iter := r.Client.Collection(categoriesCol).Where("name", "==", strings.TrimSpace(name)).Limit(1).Documents(ctx)
	items, err := collect(iter, decodeCategoryDoc)
	if err != nil {
		return catdom.Category{}, err
	}
	if len(items) == 0 {
		return catdom.Category{}, catdom.ErrNotFound
	}
	return items[0], nil
}

func (r *CategoryRepositoryFS) List(ctx context.Context, filter catdom.Filter, s catdom.Sort, page catdom.Page) (catdom.PageResult[catdom.Category], error) {
	if r.Client == nil {
		return catdom.PageResult[catdom.Category]{}, errNilClient
	}

	var (
		all []catdom.Category
		err error
	)
	if len(filter.IDs) > 0 {
		all, err = getAll(ctx, r.Client, categoriesCol, filter.IDs, decodeCategoryDoc)
	} else {
		q := r.Client.Collection(categoriesCol).Query
		if filter.Name != nil && strings.TrimSpace(*filter.Name) != "" {
			q = q.Where("name", "==", strings.TrimSpace(*filter.Name))
		}
		all, err = collect(q.Documents(ctx), decodeCategoryDoc)
	}
	if err != nil {
		return catdom.PageResult[catdom.Category]{}, err
	}

	if filter.ExcludeName != nil {
		ex := strings.TrimSpace(*filter.ExcludeName)
		kept := all[:0]
		for _, c := range all {
			if c.Name != ex {
				kept = append(kept, c)
			}
		}
		all = kept
	}

	desc := sortDesc(s.Order)
	switch strings.ToLower(s.Column) {
	case "createdat":
		sort.SliceStable(all, func(i, j int) bool {
			if desc {
				return all[i].CreatedAt.After(all[j].CreatedAt)
			}
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		})
	default:
		sort.SliceStable(all, func(i, j int) bool {
			if desc {
				return all[i].Name > all[j].Name
			}
			return all[i].Name < all[j].Name
		})
	}

	return paginate(all, page, 100, 500), nil
}

// =======================
// Mutations
// =======================

// Create enforces name uniqueness inside a transaction.
func (r *CategoryRepositoryFS) Create(ctx context.Context, c catdom.Category) (catdom.Category, error) {
	if r.Client == nil {
		return catdom.Category{}, errNilClient
	}
	col := r.Client.Collection(categoriesCol)

	var ref *gfs.DocumentRef
	if id := strings.TrimSpace(c.ID); id != "" {
		ref = col.Doc(id)
	} else {
		ref = col.NewDoc()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Name = strings.TrimSpace(c.Name)

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		dup, err := tx.Documents(col.Where("name", "==", c.Name).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(dup) > 0 {
			return catdom.ErrConflict
		}
		return tx.Create(ref, encodeCategoryDoc(c))
	})
	if err != nil {
		if errors.Is(err, catdom.ErrConflict) {
			return catdom.Category{}, catdom.ErrConflict
		}
		return catdom.Category{}, mapErr(err, catdom.ErrNotFound, catdom.ErrConflict)
	}
	return r.GetByID(ctx, ref.ID)
}

// Update ignores opts: categories carry no version.
func (r *CategoryRepositoryFS) Update(ctx context.Context, id string, patch catdom.CategoryPatch, _ *catdom.SaveOptions) (catdom.Category, error) {
	if r.Client == nil {
		return catdom.Category{}, errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return catdom.Category{}, catdom.ErrNotFound
	}
	col := r.Client.Collection(categoriesCol)
	ref := col.Doc(id)

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return mapErr(err, catdom.ErrNotFound, catdom.ErrConflict)
		}
		cur, err := decodeCategoryDoc(doc)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name != cur.Name {
				dup, err := tx.Documents(col.Where("name", "==", name).Limit(1)).GetAll()
				if err != nil {
					return err
				}
				if len(dup) > 0 {
					return catdom.ErrConflict
				}
			}
			cur.Name = name
		}
		if patch.ImageKey != nil {
			cur.ImageKey = strings.TrimSpace(*patch.ImageKey)
		}
		now := time.Now().UTC()
		cur.UpdatedAt = &now
		return tx.Set(ref, encodeCategoryDoc(cur))
	})
	if err != nil {
		if errors.Is(err, catdom.ErrNotFound) || errors.Is(err, catdom.ErrConflict) {
			return catdom.Category{}, err
		}
		return catdom.Category{}, mapErr(err, catdom.ErrNotFound, catdom.ErrConflict)
	}
	return r.GetByID(ctx, id)
}

// Delete refuses while any product still references the category.
func (r *CategoryRepositoryFS) Delete(ctx context.Context, id string) error {
	if r.Client == nil {
		return errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return catdom.ErrNotFound
	}
	ref := r.Client.Collection(categoriesCol).Doc(id)

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return mapErr(err, catdom.ErrNotFound, catdom.ErrConflict)
		}
		refs, err := tx.Documents(
			r.Client.Collection(productsCol).Where("category_id", "==", id).Limit(1),
		).GetAll()
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			return fmt.Errorf("%w: category still has products", catdom.ErrConflict)
		}
		return tx.Delete(ref)
	})
	if err != nil {
		if errors.Is(err, catdom.ErrNotFound) || errors.Is(err, catdom.ErrConflict) {
			return err
		}
		return mapErr(err, catdom.ErrNotFound, catdom.ErrConflict)
	}
	return nil
}

// =======================
// Helpers
// =======================

func decodeCategoryDoc(doc *gfs.DocumentSnapshot) (catdom.Category, error) {
	var raw categoryDoc
	if err := doc.DataTo(&raw); err != nil {
		return catdom.Category{}, err
	}
	return catdom.Category{
		ID:        strings.TrimSpace(doc.Ref.ID),
		Name:      strings.TrimSpace(raw.Name),
		ImageKey:  strings.TrimSpace(raw.ImageKey),
		CreatedAt: raw.CreatedAt.UTC(),
		UpdatedAt: timePtr(raw.UpdatedAt),
	}, nil
}

func encodeCategoryDoc(c catdom.Category) categoryDoc {
	d := categoryDoc{
		Name:      strings.TrimSpace(c.Name),
		ImageKey:  strings.TrimSpace(c.ImageKey),
		CreatedAt: c.CreatedAt.UTC(),
	}
	if c.UpdatedAt != nil {
		d.UpdatedAt = c.UpdatedAt.UTC()
	}
	return d
}
