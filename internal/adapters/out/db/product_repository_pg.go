package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbcommon "storefront/internal/adapters/out/db/common"
	common "storefront/internal/domain/common"
	productdom "storefront/internal/domain/product"
)

type ProductRepositoryPG struct {
	DB *sql.DB
}

func NewProductRepositoryPG(db *sql.DB) *ProductRepositoryPG {
	return &ProductRepositoryPG{DB: db}
}

const productColumns = `
  id, name, description, price, category_id,
  image_keys, tags, notes, quality, is_available,
  version, created_at, updated_at`

// ========================
// RepositoryPort impl
// ========================

func (r *ProductRepositoryPG) GetByID(ctx context.Context, id string) (productdom.Product, error) {
	run := dbcommon.GetRunner(ctx, r.DB)
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(run.QueryRowContext(ctx, q, strings.TrimSpace(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return productdom.Product{}, productdom.ErrNotFound
		}
		return productdom.Product{}, err
	}
	return p, nil
}

func (r *ProductRepositoryPG) List(ctx context.Context, filter productdom.Filter, sort productdom.Sort, page productdom.Page) (productdom.PageResult[productdom.Product], error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	where := buildProductWhere(filter)
	orderBy := dbcommon.BuildOrderBy(sort.Column, map[string]string{
		"createdat": "created_at",
		"updatedat": "updated_at",
		"name":      "name",
		"price":     "price",
	}, string(sort.Order), "created_at DESC, id DESC")

	number, limit, offset := common.NormalizePage(page, 50, 200)

	var total int
	if err := run.QueryRowContext(ctx, "SELECT COUNT(*) FROM products "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return productdom.PageResult[productdom.Product]{}, err
	}

	q := fmt.Sprintf(`
SELECT %s
FROM products
%s
%s
LIMIT $%d OFFSET $%d
`, productColumns, where.SQL(), orderBy, where.Next(), where.Next()+1)

	args := append(where.Args(), limit, offset)
	rows, err := run.QueryContext(ctx, q, args...)
	if err != nil {
		return productdom.PageResult[productdom.Product]{}, err
	}
	defer rows.Close()

	items := make([]productdom.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return productdom.PageResult[productdom.Product]{}, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return productdom.PageResult[productdom.Product]{}, err
	}

	return productdom.PageResult[productdom.Product]{
		Items:      items,
		TotalCount: total,
		TotalPages: common.TotalPages(total, limit),
		Page:       number,
		PerPage:    limit,
	}, nil
}

// Create inserts p with version 1. A missing category is reported as
// ErrConflict (foreign key).
func (r *ProductRepositoryPG) Create(ctx context.Context, p productdom.Product) (productdom.Product, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	quality := p.Quality
	if quality == "" {
		quality = productdom.QualityStandard
	}

	q := `
INSERT INTO products (
  id, name, description, price, category_id,
  image_keys, tags, notes, quality, is_available,
  version, created_at
) VALUES (
  COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5,
  $6, $7, $8, $9, $10,
  1, $11
)
RETURNING ` + productColumns

	row := run.QueryRowContext(ctx, q,
		strings.TrimSpace(p.ID),
		strings.TrimSpace(p.Name),
		strings.TrimSpace(p.Description),
		p.Price,
		strings.TrimSpace(p.CategoryID),
		pq.Array(dbcommon.NonNil(p.ImageKeys)),
		pq.Array(dbcommon.NonNil(p.Tags)),
		pq.Array(dbcommon.NonNil(p.Notes)),
		string(quality),
		p.IsAvailable,
		createdAt.UTC(),
	)
	out, err := scanProduct(row)
	if err != nil {
		if dbcommon.IsUniqueViolation(err) {
			return productdom.Product{}, productdom.ErrConflict
		}
		if dbcommon.IsForeignKeyViolation(err) {
			return productdom.Product{}, fmt.Errorf("%w: unknown category %q", productdom.ErrConflict, p.CategoryID)
		}
		return productdom.Product{}, err
	}
	return out, nil
}

// Update applies patch and increments version. With opts.IfMatchVersion
// the row is only touched if its version still matches; otherwise
// ErrConflict (or ErrNotFound when the row is gone).
func (r *ProductRepositoryPG) Update(ctx context.Context, id string, patch productdom.ProductPatch, opts *productdom.SaveOptions) (productdom.Product, error) {
	run := dbcommon.GetRunner(ctx, r.DB)
	id = strings.TrimSpace(id)

	sets := []string{}
	args := []any{}
	i := 1

	set := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, v)
		i++
	}
	setText := func(col string, p *string) {
		if p != nil {
			set(col, strings.TrimSpace(*p))
		}
	}
	setArray := func(col string, p *[]string) {
		if p != nil {
			set(col, pq.Array(dbcommon.NonNil(*p)))
		}
	}

	setText("name", patch.Name)
	setText("description", patch.Description)
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	setText("category_id", patch.CategoryID)
	setArray("image_keys", patch.ImageKeys)
	setArray("tags", patch.Tags)
	setArray("notes", patch.Notes)
	if patch.Quality != nil {
		set("quality", string(*patch.Quality))
	}
	if patch.IsAvailable != nil {
		set("is_available", *patch.IsAvailable)
	}

	if len(sets) == 0 {
		cur, err := r.GetByID(ctx, id)
		if err != nil {
			return productdom.Product{}, err
		}
		if opts != nil && opts.IfMatchVersion != nil && cur.Version != *opts.IfMatchVersion {
			return productdom.Product{}, versionConflict(cur.Version, *opts.IfMatchVersion)
		}
		return cur, nil
	}

	set("updated_at", time.Now().UTC())
	sets = append(sets, "version = version + 1")

	where := fmt.Sprintf("id = $%d", i)
	args = append(args, id)
	i++
	if opts != nil && opts.IfMatchVersion != nil {
		where += fmt.Sprintf(" AND version = $%d", i)
		args = append(args, *opts.IfMatchVersion)
	}

	q := fmt.Sprintf(`
UPDATE products
SET %s
WHERE %s
RETURNING %s
`, strings.Join(sets, ", "), where, productColumns)

	out, err := scanProduct(run.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if opts == nil || opts.IfMatchVersion == nil {
				return productdom.Product{}, productdom.ErrNotFound
			}
			// row missing, or version moved on
			cur, gerr := r.GetByID(ctx, id)
			if gerr != nil {
				return productdom.Product{}, gerr
			}
			return productdom.Product{}, versionConflict(cur.Version, *opts.IfMatchVersion)
		}
		if dbcommon.IsForeignKeyViolation(err) {
			return productdom.Product{}, fmt.Errorf("%w: unknown category", productdom.ErrConflict)
		}
		return productdom.Product{}, err
	}
	return out, nil
}

func (r *ProductRepositoryPG) Delete(ctx context.Context, id string) error {
	run := dbcommon.GetRunner(ctx, r.DB)
	res, err := run.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return productdom.ErrNotFound
	}
	return nil
}

// ========================
// helpers
// ========================

func versionConflict(stored, expected int64) error {
	return fmt.Errorf("%w: version is %d, expected %d", productdom.ErrConflict, stored, expected)
}

func scanProduct(s dbcommon.RowScanner) (productdom.Product, error) {
	var (
		p         productdom.Product
		price     decimal.Decimal
		imageKeys pq.StringArray
		tags      pq.StringArray
		notes     pq.StringArray
		quality   string
		createdAt time.Time
		updatedAt sql.NullTime
	)
	if err := s.Scan(
		&p.ID, &p.Name, &p.Description, &price, &p.CategoryID,
		&imageKeys, &tags, &notes, &quality, &p.IsAvailable,
		&p.Version, &createdAt, &updatedAt,
	); err != nil {
		return productdom.Product{}, err
	}
	p.Price = price
	p.ImageKeys = []string(imageKeys)
	p.Tags = []string(tags)
	p.Notes = []string(notes)
	p.Quality = productdom.Quality(quality)
	p.CreatedAt = createdAt.UTC()
	p.UpdatedAt = dbcommon.FromNullTime(updatedAt)
	return p, nil
}

func buildProductWhere(f productdom.Filter) *dbcommon.Where {
	w := &dbcommon.Where{}
	if len(f.IDs) > 0 {
		w.Add("id = ANY($%d)", pq.Array(f.IDs))
	}
	if f.CategoryID != nil && strings.TrimSpace(*f.CategoryID) != "" {
		w.Add("category_id = $%d", strings.TrimSpace(*f.CategoryID))
	}
	if f.ExcludeID != nil && strings.TrimSpace(*f.ExcludeID) != "" {
		w.Add("id <> $%d", strings.TrimSpace(*f.ExcludeID))
	}
	if f.OnlyAvailable {
		w.Raw("is_available = TRUE")
	}
	return w
}
