package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	dbcommon "storefront/internal/adapters/out/db/common"
	catdom "storefront/internal/domain/category"
	common "storefront/internal/domain/common"
)

type CategoryRepositoryPG struct {
	DB *sql.DB
}

func NewCategoryRepositoryPG(db *sql.DB) *CategoryRepositoryPG {
	return &CategoryRepositoryPG{DB: db}
}

const categoryColumns = `id, name, image_key, created_at, updated_at`

// ========================
// RepositoryPort impl
// ========================

func (r *CategoryRepositoryPG) GetByID(ctx context.Context, id string) (catdom.Category, error) {
	run := dbcommon.GetRunner(ctx, r.DB)
	row := run.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`,
		strings.TrimSpace(id),
	)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catdom.Category{}, catdom.ErrNotFound
		}
		return catdom.Category{}, err
	}
	return c, nil
}

func (r *CategoryRepositoryPG) GetByName(ctx context.Context, name string) (catdom.Category, error) {
	run := dbcommon.GetRunner(ctx, r.DB)
	row := run.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE name = $1`,
		strings.TrimSpace(name),
	)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catdom.Category{}, catdom.ErrNotFound
		}
		return catdom.Category{}, err
	}
	return c, nil
}

func (r *CategoryRepositoryPG) List(ctx context.Context, filter catdom.Filter, sort catdom.Sort, page catdom.Page) (catdom.PageResult[catdom.Category], error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	where := buildCategoryWhere(filter)
	orderBy := dbcommon.BuildOrderBy(sort.Column, map[string]string{
		"name":      "name",
		"createdat": "created_at",
		"updatedat": "updated_at",
	}, string(sort.Order), "name ASC, id ASC")

	number, limit, offset := common.NormalizePage(page, 100, 500)

	var total int
	if err := run.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return catdom.PageResult[catdom.Category]{}, err
	}

	q := fmt.Sprintf(`
SELECT %s
FROM categories
%s
%s
LIMIT $%d OFFSET $%d
`, categoryColumns, where.SQL(), orderBy, where.Next(), where.Next()+1)

	args := append(where.Args(), limit, offset)
	rows, err := run.QueryContext(ctx, q, args...)
	if err != nil {
		return catdom.PageResult[catdom.Category]{}, err
	}
	defer rows.Close()

	items := make([]catdom.Category, 0, limit)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return catdom.PageResult[catdom.Category]{}, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return catdom.PageResult[catdom.Category]{}, err
	}

	return catdom.PageResult[catdom.Category]{
		Items:      items,
		TotalCount: total,
		TotalPages: common.TotalPages(total, limit),
		Page:       number,
		PerPage:    limit,
	}, nil
}

func (r *CategoryRepositoryPG) Create(ctx context.Context, c catdom.Category) (catdom.Category, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const q = `
INSERT INTO categories (id, name, image_key, created_at)
VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4)
RETURNING ` + categoryColumns

	row := run.QueryRowContext(ctx, q,
		strings.TrimSpace(c.ID),
		strings.TrimSpace(c.Name),
		strings.TrimSpace(c.ImageKey),
		createdAt.UTC(),
	)
	out, err := scanCategory(row)
	if err != nil {
		if dbcommon.IsUniqueViolation(err) {
			return catdom.Category{}, catdom.ErrConflict
		}
		return catdom.Category{}, err
	}
	return out, nil
}

// Update ignores opts: categories carry no version.
func (r *CategoryRepositoryPG) Update(ctx context.Context, id string, patch catdom.CategoryPatch, _ *catdom.SaveOptions) (catdom.Category, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	sets := []string{}
	args := []any{}
	i := 1

	setText := func(col string, p *string) {
		if p != nil {
			sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
			args = append(args, strings.TrimSpace(*p))
			i++
		}
	}
	setText("name", patch.Name)
	setText("image_key", patch.ImageKey)

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	// always bump updated_at
	sets = append(sets, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now().UTC())
	i++

	args = append(args, strings.TrimSpace(id))
	q := fmt.Sprintf(`
UPDATE categories
SET %s
WHERE id = $%d
RETURNING %s
`, strings.Join(sets, ", "), i, categoryColumns)

	out, err := scanCategory(run.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catdom.Category{}, catdom.ErrNotFound
		}
		if dbcommon.IsUniqueViolation(err) {
			return catdom.Category{}, catdom.ErrConflict
		}
		return catdom.Category{}, err
	}
	return out, nil
}

// Delete fails with ErrConflict while products still reference the row.
func (r *CategoryRepositoryPG) Delete(ctx context.Context, id string) error {
	run := dbcommon.GetRunner(ctx, r.DB)
	res, err := run.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		if dbcommon.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: category still has products", catdom.ErrConflict)
		}
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return catdom.ErrNotFound
	}
	return nil
}

// ========================
// helpers
// ========================

func scanCategory(s dbcommon.RowScanner) (catdom.Category, error) {
	var (
		c         catdom.Category
		createdAt time.Time
		updatedAt sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.Name, &c.ImageKey, &createdAt, &updatedAt); err != nil {
		return catdom.Category{}, err
	}
	c.CreatedAt = createdAt.UTC()
	c.UpdatedAt = dbcommon.FromNullTime(updatedAt)
	return c, nil
}

func buildCategoryWhere(f catdom.Filter) *dbcommon.Where {
	w := &dbcommon.Where{}
	if len(f.IDs) > 0 {
		w.Add("id = ANY($%d)", pq.Array(f.IDs))
	}
	if f.Name != nil && strings.TrimSpace(*f.Name) != "" {
		w.Add("name = $%d", strings.TrimSpace(*f.Name))
	}
	if f.ExcludeName != nil && strings.TrimSpace(*f.ExcludeName) != "" {
		w.Add("name <> $%d", strings.TrimSpace(*f.ExcludeName))
	}
	return w
}
