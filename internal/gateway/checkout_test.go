package gateway

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/testutil"
)

func checkoutRequest() ir.CheckoutRequest {
	return ir.CheckoutRequest{
		Shipping: &ir.ShippingDetails{
			FullName: "Ada Lovelace", Email: "ada@example.com", Address: "1 Main Street",
			City: "London", PostalCode: "N1 9GU", Country: "UK",
		},
		Payment:  &ir.PaymentDetails{Method: ir.PaymentCard, CardNumber: "4242424242424242", CardExpiry: "12/30", CardCVC: "123"},
		Items:    []ir.CheckoutItem{{ProductID: 1, Quantity: 2, UnitPrice: 1000}},
		Subtotal: 2000,
		Currency: "USD",
	}
}

func TestCheckout_Accepted(t *testing.T) {
	c, _ := newShopClient(t)
	signIn(t, c)

	resp, err := c.SubmitCheckout(context.Background(), checkoutRequest())
	require.NoError(t, err)
	assert.Equal(t, "ORD-0001", resp.OrderID)
	assert.Equal(t, ir.CheckoutAccepted, resp.Status)
	assert.False(t, resp.Demo)
}

func TestCheckout_DemoFallback(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusNotImplemented} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			clock := testutil.NewManualClock(testutil.Epoch)
			c, shop := newShopClient(t, WithClock(clock.Now))
			shop.SetFault("POST /api/checkout", testutil.Fault{Status: status, Message: "nope"})

			resp, err := c.SubmitCheckout(context.Background(), checkoutRequest())
			require.NoError(t, err)
			assert.True(t, resp.Demo)
			assert.Equal(t, ir.CheckoutAccepted, resp.Status)
			assert.Equal(t, DemoMessage, resp.Message)
			assert.Equal(t, "DEMO-1767225600000", resp.OrderID)
		})
	}
}

func TestCheckout_Failure(t *testing.T) {
	c, shop := newShopClient(t)
	signIn(t, c)

	shop.SetFault("POST /api/checkout", testutil.Fault{Status: 500})
	_, err := c.SubmitCheckout(context.Background(), checkoutRequest())
	require.Error(t, err)
	assert.Equal(t, MsgPlaceOrder, err.Error())

	shop.SetFault("POST /api/checkout", testutil.Fault{Status: 402, Message: "Card declined"})
	_, err = c.SubmitCheckout(context.Background(), checkoutRequest())
	require.Error(t, err)
	assert.Equal(t, "Card declined", err.Error())
}

func TestOrders_ListAfterCheckout(t *testing.T) {
	c, _ := newShopClient(t)
	signIn(t, c)
	ctx := context.Background()

	orders, err := c.Orders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = c.SubmitCheckout(ctx, checkoutRequest())
	require.NoError(t, err)

	orders, err = c.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, ir.Money(2000), orders[0].Subtotal)
	assert.Equal(t, "Product 1", orders[0].Items[0].ProductName)
	assert.Equal(t, ir.Money(2000), orders[0].Items[0].LineTotal)
}
