// Package checkout implements one-shot order placement from a stable cart
// snapshot, plus the checkout form's validation rules and input formatters.
package checkout
