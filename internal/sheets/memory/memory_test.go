package memory

import (
	"context"
	"errors"
	"testing"

	"kharcha/internal/core"
)

func TestMirrorReplace(t *testing.T) {
	m := New()
	txs := []core.Transaction{
		{ID: "b", Type: core.Expense, Amount: 12.5, Category: "Food", Date: "2024-03-02", Note: "tea"},
		{ID: "a", Type: core.Income, Amount: 1000, Category: "Salary", Date: "2024-03-01"},
	}

	if err := m.Replace(context.Background(), txs); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	rows := m.Rows()
	if len(rows) != 3 {
		t.Fatalf("Rows() = %d rows, want 3", len(rows))
	}
	if rows[0][0] != "ID" || rows[1][0] != "b" || rows[1][4] != "12.50" || rows[2][2] != "income" {
		t.Errorf("unexpected rows: %v", rows)
	}

	if err := m.Replace(context.Background(), nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if rows := m.Rows(); len(rows) != 1 {
		t.Errorf("after empty replace Rows() = %v, want header only", rows)
	}
	if m.Replaced() != 2 {
		t.Errorf("Replaced() = %d, want 2", m.Replaced())
	}
}

func TestMirrorReplaceError(t *testing.T) {
	m := New()
	m.Err = errors.New("quota")
	if err := m.Replace(context.Background(), []core.Transaction{{ID: "a"}}); err == nil {
		t.Fatal("Replace() should return the injected error")
	}
	if len(m.Rows()) != 0 || m.Replaced() != 0 {
		t.Errorf("failed Replace should leave the sheet untouched")
	}
}
