package gateway

import (
	"context"
	"net/http"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Fallback messages for cart operations.
const (
	MsgLoadCart  = "Failed to load cart"
	MsgSyncCart  = "Failed to sync cart"
	MsgMergeCart = "Failed to merge cart"
	MsgClearCart = "Failed to clear cart"
)

// FetchCart returns the server cart (GET /api/cart).
func (c *Client) FetchCart(ctx context.Context) ([]ir.CartItem, error) {
	return c.cartCall(ctx, call{
		op: "cart.fetch", method: http.MethodGet, path: "/api/cart", fallback: MsgLoadCart,
	})
}

// ReplaceCart replaces the server cart wholesale (PUT /api/cart) and
// returns the server's canonical result.
func (c *Client) ReplaceCart(ctx context.Context, lines []ir.CartLine) ([]ir.CartItem, error) {
	return c.cartCall(ctx, call{
		op: "cart.replace", method: http.MethodPut, path: "/api/cart",
		body: nonNilLines(lines), fallback: MsgSyncCart,
	})
}

// MergeCart merges lines into the server cart (POST /api/cart/merge).
// The server decides merge semantics; its result is canonical.
func (c *Client) MergeCart(ctx context.Context, lines []ir.CartLine) ([]ir.CartItem, error) {
	return c.cartCall(ctx, call{
		op: "cart.merge", method: http.MethodPost, path: "/api/cart/merge",
		body: nonNilLines(lines), fallback: MsgMergeCart,
	})
}

// ClearCart empties the server cart (DELETE /api/cart).
func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.do(ctx, call{
		op: "cart.clear", method: http.MethodDelete, path: "/api/cart", fallback: MsgClearCart,
	}, nil)
	return err
}

func (c *Client) cartCall(ctx context.Context, cl call) ([]ir.CartItem, error) {
	var resp ir.CartResponse
	if _, err := c.do(ctx, cl, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []ir.CartItem{}, nil
	}
	return resp.Items, nil
}

func nonNilLines(lines []ir.CartLine) []ir.CartLine {
	if lines == nil {
		return []ir.CartLine{}
	}
	return lines
}
