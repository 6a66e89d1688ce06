package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// SaveCart writes the guest cart snapshot as a JSON array.
func (s *Store) SaveCart(ctx context.Context, items []ir.CartItem) error {
	if items == nil {
		items = []ir.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return s.Put(ctx, s.cartKey, data)
}

// LoadCart reads the guest cart snapshot.
//
// A missing key or a corrupt blob yields an empty cart. Only database
// failures are returned as errors.
func (s *Store) LoadCart(ctx context.Context) ([]ir.CartItem, error) {
	data, err := s.Get(ctx, s.cartKey)
	if errors.Is(err, ErrNotFound) {
		return []ir.CartItem{}, nil
	}
	if err != nil {
		return []ir.CartItem{}, fmt.Errorf("load cart: %w", err)
	}
	return ParseCart(data), nil
}

// ClearCart deletes the guest cart snapshot.
func (s *Store) ClearCart(ctx context.Context) error {
	return s.Delete(ctx, s.cartKey)
}

// ParseCart decodes a stored cart snapshot, keeping only entries that pass
// shape validation. It never fails: input that is not a JSON array yields
// an empty cart. A repeated product id keeps its first entry.
func ParseCart(data []byte) []ir.CartItem {
	items := []ir.CartItem{}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return items
	}

	seen := make(map[int64]bool, len(raw))
	for _, entry := range raw {
		it, ok := parseCartEntry(entry)
		if !ok || seen[it.Product.ID] {
			continue
		}
		seen[it.Product.ID] = true
		items = append(items, it)
	}
	return items
}

// parseCartEntry validates one stored entry:
// quantity number > 0, product.id number, product.name string,
// product.price number, product.category.id number, product.category.name string.
func parseCartEntry(data json.RawMessage) (ir.CartItem, bool) {
	obj, ok := decodeObject(data)
	if !ok {
		return ir.CartItem{}, false
	}

	qty, ok := intField(obj, "quantity")
	if !ok || qty <= 0 || qty > math.MaxInt32 {
		return ir.CartItem{}, false
	}

	product, ok := objectField(obj, "product")
	if !ok {
		return ir.CartItem{}, false
	}
	id, ok := intField(product, "id")
	if !ok {
		return ir.CartItem{}, false
	}
	name, ok := stringField(product, "name")
	if !ok {
		return ir.CartItem{}, false
	}
	price, ok := moneyField(product, "price")
	if !ok {
		return ir.CartItem{}, false
	}

	category, ok := objectField(product, "category")
	if !ok {
		return ir.CartItem{}, false
	}
	catID, ok := intField(category, "id")
	if !ok {
		return ir.CartItem{}, false
	}
	catName, ok := stringField(category, "name")
	if !ok {
		return ir.CartItem{}, false
	}

	desc, _ := stringField(product, "description")
	catDesc, _ := stringField(category, "description")

	return ir.CartItem{
		Product: ir.Product{
			ID:          id,
			Name:        name,
			Description: desc,
			Price:       price,
			Category:    ir.Category{ID: catID, Name: catName, Description: catDesc},
		},
		Quantity: int(qty),
	}, true
}

func decodeObject(data []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func objectField(obj map[string]any, key string) (map[string]any, bool) {
	v, ok := obj[key].(map[string]any)
	return v, ok
}

func stringField(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key].(string)
	return v, ok
}

// intField accepts integral JSON numbers only; quantities and ids are
// counts, so 1.5 is as invalid as a missing field.
func intField(obj map[string]any, key string) (int64, bool) {
	n, ok := obj[key].(json.Number)
	if !ok {
		return 0, false
	}
	v, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return v, true
}

func moneyField(obj map[string]any, key string) (ir.Money, bool) {
	n, ok := obj[key].(json.Number)
	if !ok {
		return 0, false
	}
	m, err := ir.ParseMoney(n.String())
	if err != nil {
		return 0, false
	}
	return m, true
}
