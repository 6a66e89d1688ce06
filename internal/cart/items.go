package cart

import "github.com/ilovedragoni/TestAutomationTarget/internal/ir"

// The functions below never modify their input. They return a new slice
// that keeps the uniqueness invariant: at most one item per product id,
// every quantity >= 1.

// Add increments the quantity of p, inserting it with quantity 1 when absent.
func Add(items []ir.CartItem, p ir.Product) []ir.CartItem {
	out := Clone(items)
	for i := range out {
		if out[i].Product.ID == p.ID {
			out[i].Quantity++
			return out
		}
	}
	return append(out, ir.CartItem{Product: p, Quantity: 1})
}

// Decrement lowers the quantity of productID by one, removing the item when
// it reaches zero. An absent product is a no-op.
func Decrement(items []ir.CartItem, productID int64) []ir.CartItem {
	out := make([]ir.CartItem, 0, len(items))
	for _, it := range items {
		if it.Product.ID == productID {
			if it.Quantity <= 1 {
				continue
			}
			it.Quantity--
		}
		out = append(out, it)
	}
	return out
}

// Remove drops productID unconditionally.
func Remove(items []ir.CartItem, productID int64) []ir.CartItem {
	out := make([]ir.CartItem, 0, len(items))
	for _, it := range items {
		if it.Product.ID != productID {
			out = append(out, it)
		}
	}
	return out
}

// Normalize drops non-positive quantities and collapses duplicate product
// ids, keeping the first occurrence.
func Normalize(items []ir.CartItem) []ir.CartItem {
	out := make([]ir.CartItem, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if it.Quantity <= 0 || seen[it.Product.ID] {
			continue
		}
		seen[it.Product.ID] = true
		out = append(out, it)
	}
	return out
}

// Find returns the item for productID.
func Find(items []ir.CartItem, productID int64) (ir.CartItem, bool) {
	for _, it := range items {
		if it.Product.ID == productID {
			return it, true
		}
	}
	return ir.CartItem{}, false
}

// Subtotal is the sum of price × quantity.
func Subtotal(items []ir.CartItem) ir.Money {
	var total ir.Money
	for _, it := range items {
		total += it.Product.Price.Times(it.Quantity)
	}
	return total
}

// Count is the sum of quantities.
func Count(items []ir.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Clone returns a non-nil copy.
func Clone(items []ir.CartItem) []ir.CartItem {
	out := make([]ir.CartItem, len(items), len(items)+1)
	copy(out, items)
	return out
}
