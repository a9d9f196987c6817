package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	productdom "storefront/internal/domain/product"
)

// ------------------------------------------------------------
// scripted database/sql driver
// ------------------------------------------------------------

// reply is what the next query sees. rows == nil means an empty result.
type reply struct {
	want string
	rows [][]driver.Value
}

type call struct {
	query string
	args  []driver.NamedValue
}

type scriptConn struct {
	t       *testing.T
	replies []reply
	calls   []call
}

func (c *scriptConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.calls = append(c.calls, call{query: query, args: args})
	if len(c.replies) == 0 {
		return nil, fmt.Errorf("unexpected query %q", query)
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	if !strings.Contains(query, r.want) {
		c.t.Errorf("query %q does not contain %q", query, r.want)
	}
	return &scriptRows{rows: r.rows}, nil
}

func (c *scriptConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *scriptConn) Close() error              { return nil }
func (c *scriptConn) Begin() (driver.Tx, error) { return nil, errors.New("tx not supported") }

type scriptRows struct {
	rows [][]driver.Value
	i    int
}

func (r *scriptRows) Columns() []string {
	return strings.Split(strings.Join(strings.Fields(productColumns), ""), ",")
}
func (r *scriptRows) Close() error { return nil }
func (r *scriptRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.i])
	r.i++
	return nil
}

type scriptConnector struct{ conn *scriptConn }

func (c scriptConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c scriptConnector) Driver() driver.Driver                        { return scriptDriver{} }

type scriptDriver struct{}

func (scriptDriver) Open(string) (driver.Conn, error) { return nil, errors.New("use the connector") }

func newScriptRepo(t *testing.T, replies ...reply) (*ProductRepositoryPG, *scriptConn) {
	t.Helper()
	conn := &scriptConn{t: t, replies: replies}
	db := sql.OpenDB(scriptConnector{conn: conn})
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return NewProductRepositoryPG(db), conn
}

func productRow(id string, version int64) []driver.Value {
	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	return []driver.Value{
		id, "Rose bouquet", "", "12.50", "cat-1",
		"{a.jpg,b.jpg}", "{}", "{}", "standard", true,
		version, at, at,
	}
}

// ------------------------------------------------------------

func TestProductUpdate_VersionGuard(t *testing.T) {
	name := "Lily bouquet"
	v := int64(4)
	patch := productdom.ProductPatch{Name: &name}
	guarded := &productdom.SaveOptions{IfMatchVersion: &v}

	tests := []struct {
		name      string
		replies   []reply
		opts      *productdom.SaveOptions
		wantErr   error
		wantCalls int
	}{
		{
			name:      "applied",
			replies:   []reply{{want: "UPDATE products", rows: [][]driver.Value{productRow("p1", 5)}}},
			opts:      guarded,
			wantCalls: 1,
		},
		{
			name: "stale version",
			replies: []reply{
				{want: "UPDATE products"},
				{want: "FROM products WHERE id = $1", rows: [][]driver.Value{productRow("p1", 6)}},
			},
			opts:      guarded,
			wantErr:   productdom.ErrConflict,
			wantCalls: 2,
		},
		{
			name: "row gone",
			replies: []reply{
				{want: "UPDATE products"},
				{want: "FROM products WHERE id = $1"},
			},
			opts:      guarded,
			wantErr:   productdom.ErrNotFound,
			wantCalls: 2,
		},
		{
			// 条件なしなら再読込しない
			name:      "unguarded missing row",
			replies:   []reply{{want: "UPDATE products"}},
			wantErr:   productdom.ErrNotFound,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, conn := newScriptRepo(t, tt.replies...)

			got, err := repo.Update(context.Background(), " p1 ", patch, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			} else if got.ID != "p1" || got.Version != 5 || len(got.ImageKeys) != 2 || got.Price.String() != "12.5" {
				t.Errorf("unexpected product %+v", got)
			}
			if len(conn.calls) != tt.wantCalls {
				t.Fatalf("queries = %d, want %d", len(conn.calls), tt.wantCalls)
			}

			upd := conn.calls[0]
			guardedQuery := strings.Contains(upd.query, "AND version = $")
			if guardedQuery != (tt.opts != nil) {
				t.Errorf("version predicate present = %v in %q", guardedQuery, upd.query)
			}
			if !strings.Contains(upd.query, "version = version + 1") {
				t.Errorf("update must bump version: %q", upd.query)
			}
			// name, updated_at, id[, version]
			last := upd.args[len(upd.args)-1].Value
			if tt.opts != nil && last != int64(4) {
				t.Errorf("last arg = %v, want expected version 4", last)
			}
			if tt.opts == nil && last != "p1" {
				t.Errorf("last arg = %v, want trimmed id", last)
			}
		})
	}
}

func TestProductUpdate_StaleVersionMessage(t *testing.T) {
	v := int64(4)
	name := "x"
	repo, _ := newScriptRepo(t,
		reply{want: "UPDATE products"},
		reply{want: "WHERE id = $1", rows: [][]driver.Value{productRow("p1", 6)}},
	)
	_, err := repo.Update(context.Background(), "p1",
		productdom.ProductPatch{Name: &name}, &productdom.SaveOptions{IfMatchVersion: &v})
	if err == nil || !strings.Contains(err.Error(), "version is 6, expected 4") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestProductUpdate_EmptyPatchChecksVersion(t *testing.T) {
	v := int64(4)
	repo, conn := newScriptRepo(t,
		reply{want: "WHERE id = $1", rows: [][]driver.Value{productRow("p1", 6)}},
	)
	_, err := repo.Update(context.Background(), "p1", productdom.ProductPatch{}, &productdom.SaveOptions{IfMatchVersion: &v})
	if !errors.Is(err, productdom.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(conn.calls) != 1 || strings.Contains(conn.calls[0].query, "UPDATE") {
		t.Errorf("empty patch must not write: %+v", conn.calls)
	}
}
