// internal/adapters/out/firestore/product_repository_fs.go
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

	productdom "storefront/internal/domain/product"
)

// ProductRepositoryFS is the Firestore implementation of the product repository.
type ProductRepositoryFS struct {
	Client *gfs.Client
}

func NewProductRepositoryFS(client *gfs.Client) *ProductRepositoryFS {
	return &ProductRepositoryFS{Client: client}
}

const productsCol = "products"

// price is kept as a decimal string so no float rounding creeps in.
type productDoc struct {
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	Price       string    `firestore:"price"`
	CategoryID  string    `firestore:"category_id"`
	ImageKeys   []string  `firestore:"image_keys"`
	Tags        []string  `firestore:"tags"`
	Notes       []string  `firestore:"notes"`
	Quality     string    `firestore:"quality"`
	IsAvailable bool      `firestore:"is_available"`
	Version     int64     `firestore:"version"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at,omitempty"`
}

// =======================
// Queries
// =======================

func (r *ProductRepositoryFS) GetByID(ctx context.Context, id string) (productdom.Product, error) {
	if r.Client == nil {
		return productdom.Product{}, errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return productdom.Product{}, productdom.ErrNotFound
	}
	doc, err := r.Client.Collection(productsCol).Doc(id).Get(ctx)
	if err != nil {
		return productdom.Product{}, mapErr(err, productdom.ErrNotFound, productdom.ErrConflict)
	}
	return decodeProductDoc(doc)
}

func (r *ProductRepositoryFS) List(ctx context.Context, filter productdom.Filter, s productdom.Sort, page productdom.Page) (productdom.PageResult[productdom.Product], error) {
	if r.Client == nil {
		return productdom.PageResult[productdom.Product]{}, errNilClient
	}

	var (
		all []productdom.Product
		err error
	)
	if len(filter.IDs) > 0 {
		all, err = getAll(ctx, r.Client, productsCol, filter.IDs, decodeProductDoc)
	} else {
		q := r.Client.Collection(productsCol).Query
		if filter.CategoryID != nil && strings.TrimSpace(*filter.CategoryID) != "" {
			q = q.Where("category_id", "==", strings.TrimSpace(*filter.CategoryID))
		}
		if filter.OnlyAvailable {
			q = q.Where("is_available", "==", true)
		}
		all, err = collect(q.Documents(ctx), decodeProductDoc)
	}
	if err != nil {
		return productdom.PageResult[productdom.Product]{}, err
	}

	kept := all[:0]
	for _, p := range all {
		if filter.ExcludeID != nil && p.ID == strings.TrimSpace(*filter.ExcludeID) {
			continue
		}
		if filter.OnlyAvailable && !p.IsAvailable {
			continue
		}
		if filter.CategoryID != nil && *filter.CategoryID != "" && p.CategoryID != strings.TrimSpace(*filter.CategoryID) {
			continue
		}
		kept = append(kept, p)
	}
	all = kept

	sortProducts(all, s)
	return paginate(all, page, 50, 200), nil
}

// =======================
// Mutations
// =======================

// Create writes p with version 1; the category must exist.
func (r *ProductRepositoryFS) Create(ctx context.Context, p productdom.Product) (productdom.Product, error) {
	if r.Client == nil {
		return productdom.Product{}, errNilClient
	}
	col := r.Client.Collection(productsCol)

	var ref *gfs.DocumentRef
	if id := strings.TrimSpace(p.ID); id != "" {
		ref = col.Doc(id)
	} else {
		ref = col.NewDoc()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Quality == "" {
		p.Quality = productdom.QualityStandard
	}
	p.Version = 1
	p.UpdatedAt = nil

	catRef := r.Client.Collection(categoriesCol).Doc(strings.TrimSpace(p.CategoryID))

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		if _, err := tx.Get(catRef); err != nil {
			if errors.Is(mapErr(err, errCategoryMissing, productdom.ErrConflict), errCategoryMissing) {
				return fmt.Errorf("%w: unknown category %q", productdom.ErrConflict, p.CategoryID)
			}
			return err
		}
		return tx.Create(ref, encodeProductDoc(p))
	})
	if err != nil {
		if errors.Is(err, productdom.ErrConflict) {
			return productdom.Product{}, err
		}
		return productdom.Product{}, mapErr(err, productdom.ErrNotFound, productdom.ErrConflict)
	}
	return r.GetByID(ctx, ref.ID)
}

var errCategoryMissing = errors.New("category missing")

// Update applies patch inside a transaction, honouring IfMatchVersion.
func (r *ProductRepositoryFS) Update(ctx context.Context, id string, patch productdom.ProductPatch, opts *productdom.SaveOptions) (productdom.Product, error) {
	if r.Client == nil {
		return productdom.Product{}, errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return productdom.Product{}, productdom.ErrNotFound
	}
	ref := r.Client.Collection(productsCol).Doc(id)

	var out productdom.Product
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return mapErr(err, productdom.ErrNotFound, productdom.ErrConflict)
		}
		cur, err := decodeProductDoc(doc)
		if err != nil {
			return err
		}
		if opts != nil && opts.IfMatchVersion != nil && cur.Version != *opts.IfMatchVersion {
			return fmt.Errorf("%w: version is %d, expected %d", productdom.ErrConflict, cur.Version, *opts.IfMatchVersion)
		}
		if patch.Empty() {
			out = cur
			return nil
		}

		next := patch.Apply(cur)
		if patch.CategoryID != nil && next.CategoryID != cur.CategoryID {
			catRef := r.Client.Collection(categoriesCol).Doc(strings.TrimSpace(next.CategoryID))
			if _, err := tx.Get(catRef); err != nil {
				if errors.Is(mapErr(err, errCategoryMissing, productdom.ErrConflict), errCategoryMissing) {
					return fmt.Errorf("%w: unknown category %q", productdom.ErrConflict, next.CategoryID)
				}
				return err
			}
		}
		now := time.Now().UTC()
		next.UpdatedAt = &now
		next.Version = cur.Version + 1
		out = next
		return tx.Set(ref, encodeProductDoc(next))
	})
	if err != nil {
		if errors.Is(err, productdom.ErrNotFound) || errors.Is(err, productdom.ErrConflict) {
			return productdom.Product{}, err
		}
		return productdom.Product{}, mapErr(err, productdom.ErrNotFound, productdom.ErrConflict)
	}
	return out, nil
}

func (r *ProductRepositoryFS) Delete(ctx context.Context, id string) error {
	if r.Client == nil {
		return errNilClient
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return productdom.ErrNotFound
	}
	// Exists precondition turns a missing doc into NotFound.
	_, err := r.Client.Collection(productsCol).Doc(id).Delete(ctx, gfs.Exists)
	if err != nil {
		return mapErr(err, productdom.ErrNotFound, productdom.ErrConflict)
	}
	return nil
}

// =======================
// Helpers
// =======================

func sortProducts(all []productdom.Product, s productdom.Sort) {
	desc := sortDesc(s.Order)
	less := func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) }
	switch strings.ToLower(s.Column) {
	case "name":
		less = func(i, j int) bool { return all[i].Name < all[j].Name }
	case "price":
		less = func(i, j int) bool { return all[i].Price.LessThan(all[j].Price) }
	case "createdat":
	default:
		// newest first unless asked otherwise
		if s.Order == "" {
			desc = true
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
}

func decodeProductDoc(doc *gfs.DocumentSnapshot) (productdom.Product, error) {
	var raw productDoc
	if err := doc.DataTo(&raw); err != nil {
		return productdom.Product{}, err
	}
	price := decimal.Zero
	if s := strings.TrimSpace(raw.Price); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return productdom.Product{}, fmt.Errorf("product %s: bad price %q: %w", doc.Ref.ID, s, err)
		}
		price = v
	}
	return productdom.Product{
		ID:          strings.TrimSpace(doc.Ref.ID),
		Name:        raw.Name,
		Description: raw.Description,
		Price:       price,
		CategoryID:  raw.CategoryID,
		ImageKeys:   nonNil(raw.ImageKeys),
		Tags:        nonNil(raw.Tags),
		Notes:       nonNil(raw.Notes),
		Quality:     productdom.Quality(raw.Quality),
		IsAvailable: raw.IsAvailable,
		Version:     raw.Version,
		CreatedAt:   raw.CreatedAt.UTC(),
		UpdatedAt:   timePtr(raw.UpdatedAt),
	}, nil
}

func encodeProductDoc(p productdom.Product) productDoc {
	d := productDoc{
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
		Price:       p.Price.String(),
		CategoryID:  strings.TrimSpace(p.CategoryID),
		ImageKeys:   nonNil(p.ImageKeys),
		Tags:        nonNil(p.Tags),
		Notes:       nonNil(p.Notes),
		Quality:     string(p.Quality),
		IsAvailable: p.IsAvailable,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt.UTC(),
	}
	if p.UpdatedAt != nil {
		d.UpdatedAt = p.UpdatedAt.UTC()
	}
	return d
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
