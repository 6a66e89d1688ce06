package gateway

import (
	"context"
	"net/http"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// MsgLoadOrders is the order history fallback message.
const MsgLoadOrders = "Failed to load orders"

// Orders returns the account's order history (GET /api/orders).
func (c *Client) Orders(ctx context.Context) ([]ir.OrderSummary, error) {
	var resp []ir.OrderSummary
	if _, err := c.do(ctx, call{
		op: "orders.list", method: http.MethodGet, path: "/api/orders", fallback: MsgLoadOrders,
	}, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []ir.OrderSummary{}
	}
	return resp, nil
}
