package catalog

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

func newCatalog(t *testing.T) (*Catalog, *engine.Engine, *testutil.FakeShop) {
	t.Helper()
	shop := testutil.NewFakeShop()
	url := shop.Start()
	t.Cleanup(shop.Close)

	client, err := gateway.New(url)
	require.NoError(t, err)

	eng := engine.New()
	t.Cleanup(func() {
		eng.Stop()
		eng.Wait()
	})
	return New(eng, client), eng, shop
}

func settle(t *testing.T, eng *engine.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eng.RunUntilIdle(ctx))
}

func ids(items []ir.Product) []int64 {
	out := make([]int64, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}

func span(from, to int64) []int64 {
	var out []int64
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestLoadProducts_Pages(t *testing.T) {
	c, eng, shop := newCatalog(t)

	c.LoadProducts(ir.ProductFilters{})
	settle(t, eng)

	st := c.State()
	assert.Equal(t, span(1, 12), ids(st.Items))
	assert.Equal(t, 0, st.Page)
	assert.Equal(t, 12, st.Size)
	assert.Equal(t, int64(30), st.TotalElements)
	assert.Equal(t, 3, st.TotalPages)
	assert.False(t, st.Loading)

	c.SetPage(1)
	settle(t, eng)

	st = c.State()
	assert.Equal(t, span(13, 24), ids(st.Items))
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, 3, st.TotalPages)
	assert.Equal(t, 2, shop.CallCount("GET /api/products"))
	assert.Equal(t, "page=1&size=12", shop.Calls("GET /api/products")[1].Query)
}

func TestSetFilters_DoNotFetch(t *testing.T) {
	c, eng, shop := newCatalog(t)

	c.SetSearch("product 1")
	c.SetCategory(2)
	settle(t, eng)

	assert.Equal(t, 0, shop.CallCount("GET /api/products"))
	st := c.State()
	assert.Equal(t, "product 1", st.Search)
	assert.Equal(t, int64(2), st.CategoryID)
}

func TestSetPage_KeepsFilters(t *testing.T) {
	c, eng, shop := newCatalog(t)

	c.LoadProducts(ir.ProductFilters{CategoryID: 1, Size: 4})
	settle(t, eng)
	assert.Equal(t, []int64{1, 4, 7, 10}, ids(c.State().Items))

	c.SetPage(1)
	settle(t, eng)

	assert.Equal(t, []int64{13, 16, 19, 22}, ids(c.State().Items))
	assert.Equal(t, "categoryId=1&page=1&size=4", shop.Calls("GET /api/products")[1].Query)
}

func TestSetSearch_ResetsPage(t *testing.T) {
	c, eng, _ := newCatalog(t)

	c.LoadProducts(ir.ProductFilters{Page: 2})
	c.SetSearch("2")
	settle(t, eng)

	assert.Equal(t, 0, c.State().Page, "search goes back to the first page")
}

func TestLoadProducts_LatestWins(t *testing.T) {
	c, eng, _ := newCatalog(t)

	c.LoadProducts(ir.ProductFilters{Page: 0})
	c.LoadProducts(ir.ProductFilters{Page: 2})
	settle(t, eng)

	st := c.State()
	assert.Equal(t, 2, st.Page)
	assert.Equal(t, span(25, 30), ids(st.Items))
	assert.False(t, st.Loading)
}

func TestLoadProducts_FailureKeepsItems(t *testing.T) {
	c, eng, shop := newCatalog(t)

	c.LoadProducts(ir.ProductFilters{})
	settle(t, eng)

	shop.SetFault("GET /api/products", testutil.Fault{Status: http.StatusInternalServerError, Message: "database down"})
	c.SetPage(1)
	settle(t, eng)

	st := c.State()
	assert.Equal(t, gateway.MsgFetchProducts, st.Error, "catalog errors use the fixed message")
	assert.Equal(t, span(1, 12), ids(st.Items))
	assert.False(t, st.Loading)

	c.ClearError()
	settle(t, eng)
	assert.Empty(t, c.State().Error)
}

func TestLoadProduct(t *testing.T) {
	c, eng, _ := newCatalog(t)

	c.LoadProduct(5)
	settle(t, eng)

	st := c.State()
	require.NotNil(t, st.Current)
	assert.Equal(t, "Product 5", st.Current.Name)
	assert.Equal(t, ir.Money(3000), st.Current.Price)

	c.ClearCurrent()
	settle(t, eng)
	assert.Nil(t, c.State().Current)
}

func TestLoadProduct_NotFound(t *testing.T) {
	c, eng, _ := newCatalog(t)

	c.LoadProduct(999)
	settle(t, eng)

	st := c.State()
	assert.Nil(t, st.Current)
	assert.Equal(t, gateway.MsgFetchProduct, st.Error)
}

func TestLoadCategories(t *testing.T) {
	c, eng, _ := newCatalog(t)

	c.LoadCategories("")
	settle(t, eng)
	assert.Len(t, c.State().Categories, 3)

	c.LoadCategories("boo")
	settle(t, eng)
	cats := c.State().Categories
	require.Len(t, cats, 1)
	assert.Equal(t, "Books", cats[0].Name)
}

func TestState_IsCopy(t *testing.T) {
	c, eng, _ := newCatalog(t)
	c.LoadProducts(ir.ProductFilters{})
	settle(t, eng)

	st := c.State()
	st.Items[0].Name = "changed"
	assert.Equal(t, "Product 1", c.State().Items[0].Name)
}
