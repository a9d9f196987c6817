package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	dbcommon "storefront/internal/adapters/out/db/common"
	ddom "storefront/internal/domain/discount"
)

// Repository implementation for Discount (PostgreSQL)
type DiscountRepositoryPG struct {
	DB *sql.DB
}

func NewDiscountRepositoryPG(db *sql.DB) *DiscountRepositoryPG {
	return &DiscountRepositoryPG{DB: db}
}

const discountColumns = `id, name, total, valid_until, created_at, updated_at`

// =======================
// Queries
// =======================

func (r *DiscountRepositoryPG) List(ctx context.Context, filter ddom.Filter) ([]ddom.Discount, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	where := &dbcommon.Where{}
	if filter.ActiveAt != nil {
		where.Add("(valid_until IS NULL OR valid_until > $%d)", filter.ActiveAt.UTC())
	}

	q := fmt.Sprintf(`
SELECT %s
FROM discounts
%s
ORDER BY created_at DESC, id DESC
`, discountColumns, where.SQL())

	rows, err := run.QueryContext(ctx, q, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ddom.Discount{}
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *DiscountRepositoryPG) GetByID(ctx context.Context, id string) (ddom.Discount, error) {
	return r.getOne(ctx, "id", id)
}

func (r *DiscountRepositoryPG) GetByName(ctx context.Context, name string) (ddom.Discount, error) {
	return r.getOne(ctx, "name", name)
}

func (r *DiscountRepositoryPG) getOne(ctx context.Context, col, v string) (ddom.Discount, error) {
	run := dbcommon.GetRunner(ctx, r.DB)
	q := fmt.Sprintf(`SELECT %s FROM discounts WHERE %s = $1`, discountColumns, col)
	d, err := scanDiscount(run.QueryRowContext(ctx, q, strings.TrimSpace(v)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ddom.Discount{}, ddom.ErrNotFound
		}
		return ddom.Discount{}, err
	}
	return d, nil
}

// =======================
// Mutations
// =======================

func (r *DiscountRepositoryPG) Create(ctx context.Context, d ddom.Discount) (ddom.Discount, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const q = `
INSERT INTO discounts (id, name, total, valid_until, created_at)
VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5)
RETURNING ` + discountColumns

	out, err := scanDiscount(run.QueryRowContext(ctx, q,
		strings.TrimSpace(d.ID),
		strings.TrimSpace(d.Name),
		d.Total,
		dbcommon.ToDBTime(d.ValidUntil),
		createdAt.UTC(),
	))
	if err != nil {
		if dbcommon.IsUniqueViolation(err) {
			return ddom.Discount{}, ddom.ErrConflict
		}
		return ddom.Discount{}, err
	}
	return out, nil
}

func (r *DiscountRepositoryPG) Delete(ctx context.Context, id string) error {
	run := dbcommon.GetRunner(ctx, r.DB)
	res, err := run.ExecContext(ctx, `DELETE FROM discounts WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ddom.ErrNotFound
	}
	return nil
}

// =======================
// Helpers
// =======================

func scanDiscount(s dbcommon.RowScanner) (ddom.Discount, error) {
	var (
		d          ddom.Discount
		total      decimal.Decimal
		validUntil sql.NullTime
		createdAt  time.Time
		updatedAt  sql.NullTime
	)
	if err := s.Scan(&d.ID, &d.Name, &total, &validUntil, &createdAt, &updatedAt); err != nil {
		return ddom.Discount{}, err
	}
	d.Total = total
	d.ValidUntil = dbcommon.FromNullTime(validUntil)
	d.CreatedAt = createdAt.UTC()
	d.UpdatedAt = dbcommon.FromNullTime(updatedAt)
	return d, nil
}
