package store

import (
	"path/filepath"
	"testing"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testItem creates a valid cart item.
func testItem(id int64, price ir.Money, qty int) ir.CartItem {
	return ir.CartItem{
		Product: ir.Product{
			ID:       id,
			Name:     "Product",
			Price:    price,
			Category: ir.Category{ID: 1, Name: "Gear"},
		},
		Quantity: qty,
	}
}
