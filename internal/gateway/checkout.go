package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// MsgPlaceOrder is the checkout fallback message.
const MsgPlaceOrder = "Failed to place order"

// DemoMessage accompanies a locally synthesized checkout response.
const DemoMessage = "Order placed in demo mode. Backend checkout integration is pending."

// SubmitCheckout places an order (POST /api/checkout).
//
// A 404 or 501 means the backend has no checkout yet. That is not an error:
// the client returns a synthesized accepted response with Demo set.
func (c *Client) SubmitCheckout(ctx context.Context, req ir.CheckoutRequest) (ir.CheckoutResponse, error) {
	var resp ir.CheckoutResponse
	status, err := c.do(ctx, call{
		op: "checkout.submit", method: http.MethodPost, path: "/api/checkout",
		body: req, fallback: MsgPlaceOrder,
	}, &resp)
	if status == http.StatusNotFound || status == http.StatusNotImplemented {
		return c.demoResponse(), nil
	}
	if err != nil {
		return ir.CheckoutResponse{}, err
	}
	return resp, nil
}

func (c *Client) demoResponse() ir.CheckoutResponse {
	return ir.CheckoutResponse{
		OrderID: fmt.Sprintf("DEMO-%d", c.now().UnixMilli()),
		Status:  ir.CheckoutAccepted,
		Message: DemoMessage,
		Demo:    true,
	}
}
