// internal/adapters/out/db/common/sqlutil.go
package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// RowScanner は *sql.Row, *sql.Rows の両方に共通の Scan() メソッドを持つ抽象型です。
type RowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQL error codes
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// IsUniqueViolation は PostgreSQL 一意制約違反（duplicate key）を検知します。
func IsUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

// IsForeignKeyViolation reports a broken or still-referenced foreign key.
func IsForeignKeyViolation(err error) bool {
	return pqCode(err) == codeForeignKeyViolation
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// Runner は *sql.DB と *sql.Tx の共通インターフェースです。
type Runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type txKey struct{}

// CtxWithTx は ctx に tx を格納して返します。
func CtxWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetRunner は ctx に Tx があればそれを、無ければ *sql.DB を返します。
func GetRunner(ctx context.Context, db *sql.DB) Runner {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return db
}

// Where は WHERE 句と $n 引数を組み立てます。
type Where struct {
	conds []string
	args  []any
}

// Add appends a condition. exprFmt contains one %d, replaced by the next
// placeholder number.
func (w *Where) Add(exprFmt string, val any) {
	w.args = append(w.args, val)
	w.conds = append(w.conds, fmt.Sprintf(exprFmt, len(w.args)))
}

// Raw appends a condition without arguments.
func (w *Where) Raw(cond string) { w.conds = append(w.conds, cond) }

func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

func (w *Where) Args() []any { return w.args }

// Next returns the next free placeholder number.
func (w *Where) Next() int { return len(w.args) + 1 }

// BuildOrderBy はドメインのソート指定を安全な SQL の ORDER BY に変換します。
// allowed はドメイン列名->SQL列名のホワイトリスト。fallback はデフォルト（例: "created_at DESC"）
func BuildOrderBy(column string, allowed map[string]string, order string, fallback string) string {
	sqlCol, ok := allowed[strings.ToLower(strings.TrimSpace(column))]
	if !ok || sqlCol == "" {
		if fallback == "" {
			return ""
		}
		return "ORDER BY " + fallback
	}
	dir := strings.ToUpper(strings.TrimSpace(order))
	if dir != "ASC" && dir != "DESC" {
		dir = "ASC"
	}
	// id tie-breaker keeps paging stable
	return fmt.Sprintf("ORDER BY %s %s, id %s", sqlCol, dir, dir)
}

// FromNullTime は sql.NullTime を *time.Time に変換します（無効なら nil）。
func FromNullTime(nt sql.NullTime) *time.Time {
	if nt.Valid {
		v := nt.Time.UTC()
		return &v
	}
	return nil
}

// ToDBTime は *time.Time を DB に渡せる値(nil/UTC)へ変換します。
func ToDBTime(p *time.Time) any {
	if p == nil || p.IsZero() {
		return nil
	}
	return p.UTC()
}

// NonNil turns a nil slice into an empty one (text[] columns are NOT NULL).
func NonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
