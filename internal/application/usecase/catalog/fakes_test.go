package catalog_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	catdom "storefront/internal/domain/category"
	productdom "storefront/internal/domain/product"
)

// ==============================
// in-memory category repository
// ==============================

type memCategories struct {
	mu       sync.Mutex
	rows     map[string]catdom.Category
	seq      int
	products *memProducts

	failCreate error
	failUpdate error
}

func newMemCategories() *memCategories {
	return &memCategories{rows: map[string]catdom.Category{}}
}

func (r *memCategories) GetByID(_ context.Context, id string) (catdom.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return catdom.Category{}, catdom.ErrNotFound
	}
	return c, nil
}

func (r *memCategories) GetByName(_ context.Context, name string) (catdom.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.Name == name {
			return c, nil
		}
	}
	return catdom.Category{}, catdom.ErrNotFound
}

func (r *memCategories) Create(_ context.Context, c catdom.Category) (catdom.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return catdom.Category{}, r.failCreate
	}
	for _, x := range r.rows {
		if x.Name == c.Name {
			return catdom.Category{}, catdom.ErrConflict
		}
	}
	r.seq++
	c.ID = fmt.Sprintf("cat-%d", r.seq)
	r.rows[c.ID] = c
	return c, nil
}

func (r *memCategories) Update(_ context.Context, id string, p catdom.CategoryPatch, _ *catdom.SaveOptions) (catdom.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return catdom.Category{}, r.failUpdate
	}
	c, ok := r.rows[id]
	if !ok {
		return catdom.Category{}, catdom.ErrNotFound
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.ImageKey != nil {
		c.ImageKey = *p.ImageKey
	}
	now := time.Now().UTC()
	c.UpdatedAt = &now
	r.rows[id] = c
	return c, nil
}

func (r *memCategories) Delete(ctx context.Context, id string) error {
	if r.products != nil && r.products.countIn(id) > 0 {
		return fmt.Errorf("%w: category still has products", catdom.ErrConflict)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return catdom.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memCategories) List(_ context.Context, f catdom.Filter, _ catdom.Sort, _ catdom.Page) (catdom.PageResult[catdom.Category], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []catdom.Category
	for _, c := range r.rows {
		if f.ExcludeName != nil && c.Name == *f.ExcludeName {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return catdom.PageResult[catdom.Category]{Items: out, TotalCount: len(out), TotalPages: 1, Page: 1, PerPage: len(out)}, nil
}

// ==============================
// in-memory product repository
// ==============================

type memProducts struct {
	mu   sync.Mutex
	rows map[string]productdom.Product
	seq  int

	failCreate error
	failUpdate error
	// beforeUpdate runs before the version check (simulates a concurrent writer).
	beforeUpdate func()
}

func newMemProducts() *memProducts {
	return &memProducts{rows: map[string]productdom.Product{}}
}

func (r *memProducts) countIn(categoryID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.rows {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n
}

// bump changes the stored version behind the facade's back.
func (r *memProducts) bump(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.rows[id]
	p.Version++
	r.rows[id] = p
}

func (r *memProducts) GetByID(_ context.Context, id string) (productdom.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return productdom.Product{}, productdom.ErrNotFound
	}
	return p, nil
}

func (r *memProducts) Create(_ context.Context, p productdom.Product) (productdom.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return productdom.Product{}, r.failCreate
	}
	r.seq++
	p.ID = fmt.Sprintf("prod-%d", r.seq)
	p.Version = 1
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.rows[p.ID] = p
	return p, nil
}

func (r *memProducts) Update(_ context.Context, id string, patch productdom.ProductPatch, opts *productdom.SaveOptions) (productdom.Product, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return productdom.Product{}, r.failUpdate
	}
	p, ok := r.rows[id]
	if !ok {
		return productdom.Product{}, productdom.ErrNotFound
	}
	if opts != nil && opts.IfMatchVersion != nil && *opts.IfMatchVersion != p.Version {
		return productdom.Product{}, fmt.Errorf("%w: version mismatch", productdom.ErrConflict)
	}
	p = patch.Apply(p)
	p.Version++
	now := time.Now().UTC()
	p.UpdatedAt = &now
	r.rows[id] = p
	return p, nil
}

func (r *memProducts) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return productdom.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memProducts) List(_ context.Context, f productdom.Filter, _ productdom.Sort, _ productdom.Page) (productdom.PageResult[productdom.Product], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []productdom.Product
	for _, p := range r.rows {
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		if f.ExcludeID != nil && p.ID == *f.ExcludeID {
			continue
		}
		if f.OnlyAvailable && !p.IsAvailable {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return productdom.PageResult[productdom.Product]{Items: out, TotalCount: len(out), TotalPages: 1, Page: 1, PerPage: len(out)}, nil
}
