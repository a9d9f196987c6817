package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestViolationCodes(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	fk := &pq.Error{Code: "23503"}

	if !IsUniqueViolation(unique) || IsForeignKeyViolation(unique) {
		t.Errorf("unique violation misclassified")
	}
	if !IsForeignKeyViolation(fk) || IsUniqueViolation(fk) {
		t.Errorf("foreign key violation misclassified")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Errorf("plain error must not match")
	}
}

func TestWhere_NumbersPlaceholders(t *testing.T) {
	w := &Where{}
	if w.SQL() != "" {
		t.Fatalf("empty Where should render nothing, got %q", w.SQL())
	}
	w.Add("a = $%d", 1)
	w.Raw("b IS NULL")
	w.Add("c <> $%d", "x")

	if got, want := w.SQL(), "WHERE a = $1 AND b IS NULL AND c <> $2"; got != want {
		t.Errorf("SQL() = %q, want %q", got, want)
	}
	if len(w.Args()) != 2 || w.Next() != 3 {
		t.Errorf("args = %v, next = %d", w.Args(), w.Next())
	}
}

func TestBuildOrderBy(t *testing.T) {
	allowed := map[string]string{"createdat": "created_at"}
	tests := []struct {
		col, order, want string
	}{
		{"createdAt", "desc", "ORDER BY created_at DESC, id DESC"},
		{"createdAt", "sideways", "ORDER BY created_at ASC, id ASC"},
		{"password", "asc", "ORDER BY name ASC"},
		{"", "", "ORDER BY name ASC"},
	}
	for _, tt := range tests {
		if got := BuildOrderBy(tt.col, allowed, tt.order, "name ASC"); got != tt.want {
			t.Errorf("BuildOrderBy(%q, %q) = %q, want %q", tt.col, tt.order, got, tt.want)
		}
	}
}
