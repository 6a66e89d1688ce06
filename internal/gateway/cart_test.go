package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/testutil"
)

func TestCart_RequiresSession(t *testing.T) {
	c, _ := newShopClient(t)

	_, err := c.FetchCart(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Not authenticated", err.Error())
}

func TestCart_ReplaceFetchClear(t *testing.T) {
	c, shop := newShopClient(t)
	signIn(t, c)
	ctx := context.Background()

	items, err := c.ReplaceCart(ctx, []ir.CartLine{{ProductID: 1, Quantity: 2}, {ProductID: 3, Quantity: 1}})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Product 1", items[0].Product.Name)
	assert.Equal(t, ir.Money(1000), items[0].Product.Price)

	// Wire payload is [{productId, quantity}].
	calls := shop.Calls("PUT /api/cart")
	require.Len(t, calls, 1)
	var sent []map[string]any
	require.NoError(t, json.Unmarshal(calls[0].Body, &sent))
	assert.Equal(t, float64(1), sent[0]["productId"])
	assert.Equal(t, float64(2), sent[0]["quantity"])

	fetched, err := c.FetchCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, ir.Lines(items), ir.Lines(fetched))

	require.NoError(t, c.ClearCart(ctx))
	fetched, err = c.FetchCart(ctx)
	require.NoError(t, err)
	assert.NotNil(t, fetched)
	assert.Empty(t, fetched)
}

func TestCart_ReplaceEmptySendsArray(t *testing.T) {
	c, shop := newShopClient(t)
	signIn(t, c)

	_, err := c.ReplaceCart(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(shop.Calls("PUT /api/cart")[0].Body))
}

func TestCart_MergeIsServerDecided(t *testing.T) {
	c, shop := newShopClient(t)
	require.NoError(t, shop.SeedCart(testutil.DemoEmail, []ir.CartLine{{ProductID: 1, Quantity: 1}}))
	signIn(t, c)

	items, err := c.MergeCart(context.Background(), []ir.CartLine{{ProductID: 1, Quantity: 2}, {ProductID: 4, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, []ir.CartLine{{ProductID: 1, Quantity: 3}, {ProductID: 4, Quantity: 1}}, ir.Lines(items))
}

func TestCart_FallbackMessages(t *testing.T) {
	tests := []struct {
		route string
		run   func(*Client) error
		want  string
	}{
		{"GET /api/cart", func(c *Client) error { _, err := c.FetchCart(context.Background()); return err }, MsgLoadCart},
		{"PUT /api/cart", func(c *Client) error { _, err := c.ReplaceCart(context.Background(), nil); return err }, MsgSyncCart},
		{"POST /api/cart/merge", func(c *Client) error { _, err := c.MergeCart(context.Background(), nil); return err }, MsgMergeCart},
		{"DELETE /api/cart", func(c *Client) error { return c.ClearCart(context.Background()) }, MsgClearCart},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			c, shop := newShopClient(t)
			signIn(t, c)
			shop.SetFault(tt.route, testutil.Fault{Status: http.StatusInternalServerError})

			err := tt.run(c)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
		})
	}
}

func TestCart_ServerMessageWins(t *testing.T) {
	c, shop := newShopClient(t)
	signIn(t, c)
	shop.SetFault("PUT /api/cart", testutil.Fault{Status: 409, Message: "Only 2 left in stock", Times: 1})

	_, err := c.ReplaceCart(context.Background(), []ir.CartLine{{ProductID: 1, Quantity: 5}})
	require.Error(t, err)
	assert.Equal(t, "Only 2 left in stock", Message(err, MsgSyncCart))

	// Fault was one-shot.
	_, err = c.ReplaceCart(context.Background(), []ir.CartLine{{ProductID: 1, Quantity: 5}})
	assert.NoError(t, err)
}
