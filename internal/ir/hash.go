package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainCart    = "storefront/cart/v1"
	DomainRequest = "storefront/checkout/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Lines projects items onto their wire form, preserving order.
func Lines(items []CartItem) []CartLine {
	lines := make([]CartLine, len(items))
	for i, it := range items {
		lines[i] = CartLine{ProductID: it.Product.ID, Quantity: it.Quantity}
	}
	return lines
}

// CartDigest identifies the {productId, quantity} content of a cart.
// Item order and product details do not affect the digest, so two carts
// with the same digest need no server round trip to reconcile.
func CartDigest(items []CartItem) string {
	lines := Lines(items)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	arr := make([]any, len(lines))
	for i, l := range lines {
		arr[i] = map[string]any{
			"product_id": l.ProductID,
			"quantity":   l.Quantity,
		}
	}
	// Only ints and strings go in, so marshaling cannot fail.
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		panic(fmt.Sprintf("CartDigest: %v", err))
	}
	return hashWithDomain(DomainCart, canonical)
}

// CheckoutDigest identifies the cart content of a checkout request.
// It is logged on submission so an order can be tied to the cart snapshot
// it was placed from.
func CheckoutDigest(req CheckoutRequest) (string, error) {
	items := make([]any, len(req.Items))
	for i, it := range req.Items {
		items[i] = map[string]any{
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice,
		}
	}
	obj := map[string]any{
		"currency": req.Currency,
		"items":    items,
		"subtotal": req.Subtotal,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CheckoutDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRequest, canonical), nil
}
