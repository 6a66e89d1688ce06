package orders

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/testutil"
)

func setup(t *testing.T) (*History, *engine.Engine, *testutil.FakeShop, *gateway.Client) {
	t.Helper()
	shop := testutil.NewFakeShop()
	url := shop.Start()
	t.Cleanup(shop.Close)

	client, err := gateway.New(url)
	require.NoError(t, err)
	_, err = client.SignIn(context.Background(), ir.SignInRequest{Email: testutil.DemoEmail, Password: testutil.DemoPassword})
	require.NoError(t, err)

	eng := engine.New()
	t.Cleanup(func() {
		eng.Stop()
		eng.Wait()
	})
	return New(eng, client), eng, shop, client
}

func settle(t *testing.T, eng *engine.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eng.RunUntilIdle(ctx))
}

func placeOrder(t *testing.T, client *gateway.Client, productID int64, qty int, price ir.Money) {
	t.Helper()
	_, err := client.SubmitCheckout(context.Background(), ir.CheckoutRequest{
		Shipping: &ir.ShippingDetails{FullName: "Demo User", Address: "1 Main Street"},
		Payment:  &ir.PaymentDetails{Method: ir.PaymentPaypal, PaypalEmail: "demo@paypal.test"},
		Items:    []ir.CheckoutItem{{ProductID: productID, Quantity: qty, UnitPrice: price}},
		Subtotal: price.Times(qty),
		Currency: "USD",
	})
	require.NoError(t, err)
}

func TestLoad(t *testing.T) {
	h, eng, _, client := setup(t)
	placeOrder(t, client, 1, 2, 1000)
	placeOrder(t, client, 2, 1, 1500)

	h.Load()
	settle(t, eng)

	st := h.State()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	require.Len(t, st.Items, 2)
	assert.Equal(t, "ORD-0002", st.Items[0].OrderID, "newest first")
	assert.Equal(t, ir.Money(2000), st.Items[1].Subtotal)
	assert.Equal(t, "Product 1", st.Items[1].Items[0].ProductName)
}

func TestLoad_Empty(t *testing.T) {
	h, eng, _, _ := setup(t)

	h.Load()
	settle(t, eng)

	assert.NotNil(t, h.State().Items)
	assert.Empty(t, h.State().Items)
}

func TestLoad_FailureKeepsItems(t *testing.T) {
	h, eng, shop, client := setup(t)
	placeOrder(t, client, 1, 1, 1000)
	h.Load()
	settle(t, eng)

	shop.SetFault("GET /api/orders", testutil.Fault{Status: http.StatusServiceUnavailable})
	h.Load()
	settle(t, eng)

	st := h.State()
	assert.Equal(t, gateway.MsgLoadOrders, st.Error)
	assert.Len(t, st.Items, 1)

	h.ClearError()
	h.Reset()
	settle(t, eng)
	assert.Equal(t, State{Items: []ir.OrderSummary{}}, h.State())
}

func TestLoad_Unauthenticated(t *testing.T) {
	h, eng, _, client := setup(t)
	require.NoError(t, client.Logout(context.Background()))

	h.Load()
	settle(t, eng)

	assert.Equal(t, "Not authenticated", h.State().Error)
}
