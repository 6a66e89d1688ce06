package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Fallback messages for catalog operations. Catalog errors always use
// these, whatever the body says.
const (
	MsgFetchCategories = "Failed to fetch categories"
	MsgFetchProducts   = "Failed to fetch products"
	MsgFetchProduct    = "Failed to fetch product"
)

// Categories lists categories, optionally filtered (GET /api/categories?search=).
func (c *Client) Categories(ctx context.Context, search string) ([]ir.Category, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	var resp []ir.Category
	if _, err := c.do(ctx, call{
		op: "catalog.categories", method: http.MethodGet, path: "/api/categories",
		query: q, fallback: MsgFetchCategories, fixedMessage: true,
	}, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []ir.Category{}
	}
	return resp, nil
}

// Products returns one catalog page (GET /api/products).
func (c *Client) Products(ctx context.Context, f ir.ProductFilters) (ir.ProductPage, error) {
	var page ir.ProductPage
	_, err := c.do(ctx, call{
		op: "catalog.products", method: http.MethodGet, path: "/api/products",
		query: productQuery(f), fallback: MsgFetchProducts, fixedMessage: true,
	}, &page)
	if err != nil {
		return ir.ProductPage{}, err
	}
	if page.Items == nil {
		page.Items = []ir.Product{}
	}
	return page, nil
}

// Product returns a single product (GET /api/products/{id}).
func (c *Client) Product(ctx context.Context, id int64) (ir.Product, error) {
	var p ir.Product
	_, err := c.do(ctx, call{
		op: "catalog.product", method: http.MethodGet,
		path:     "/api/products/" + strconv.FormatInt(id, 10),
		fallback: MsgFetchProduct, fixedMessage: true,
	}, &p)
	return p, err
}

func productQuery(f ir.ProductFilters) url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.CategoryID != 0 {
		q.Set("categoryId", strconv.FormatInt(f.CategoryID, 10))
	}
	q.Set("page", strconv.Itoa(f.Page))
	if f.Size > 0 {
		q.Set("size", strconv.Itoa(f.Size))
	}
	return q
}
