package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Gateway is the catalog part of the remote API.
type Gateway interface {
	Products(ctx context.Context, f ir.ProductFilters) (ir.ProductPage, error)
	Product(ctx context.Context, id int64) (ir.Product, error)
	Categories(ctx context.Context, search string) ([]ir.Category, error)
}

// State is a copy of the catalog state.
type State struct {
	Items         []ir.Product  `json:"items"`
	Page          int           `json:"page"`
	Size          int           `json:"size"`
	TotalElements int64         `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
	Search        string        `json:"search,omitempty"`
	CategoryID    int64         `json:"categoryId,omitempty"`
	Current       *ir.Product   `json:"current,omitempty"`
	Categories    []ir.Category `json:"categories"`
	Loading       bool          `json:"loading"`
	Error         string        `json:"error,omitempty"`
}

// Filters returns the filters the listing was last requested with.
func (s State) Filters() ir.ProductFilters {
	return ir.ProductFilters{Search: s.Search, CategoryID: s.CategoryID, Page: s.Page, Size: s.Size}
}

// Catalog is the products container.
type Catalog struct {
	eng *engine.Engine
	gw  Gateway

	mu      sync.RWMutex
	state   State
	listSeq uint64
	pending int
}

// New creates an empty Catalog.
func New(eng *engine.Engine, gw Gateway) *Catalog {
	return &Catalog{
		eng: eng,
		gw:  gw,
		state: State{
			Items:      []ir.Product{},
			Categories: []ir.Category{},
		},
	}
}

// State returns a copy of the current state.
func (c *Catalog) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.state
	s.Items = make([]ir.Product, len(c.state.Items))
	copy(s.Items, c.state.Items)
	s.Categories = make([]ir.Category, len(c.state.Categories))
	copy(s.Categories, c.state.Categories)
	if c.state.Current != nil {
		p := *c.state.Current
		s.Current = &p
	}
	return s
}

// LoadProducts records filters and fetches that page.
func (c *Catalog) LoadProducts(filters ir.ProductFilters) bool {
	return c.eng.Dispatch("catalog.products", func(context.Context) error {
		c.update(func(s *State) {
			s.Search = filters.Search
			s.CategoryID = filters.CategoryID
			s.Page = filters.Page
			s.Size = filters.Size
		})
		c.fetchPage(filters)
		return nil
	})
}

// SetSearch changes the search filter and goes back to the first page.
func (c *Catalog) SetSearch(search string) bool {
	return c.eng.Dispatch("catalog.search", func(context.Context) error {
		c.update(func(s *State) {
			s.Search = search
			s.Page = 0
		})
		return nil
	})
}

// SetCategory changes the category filter; zero means all categories.
func (c *Catalog) SetCategory(id int64) bool {
	return c.eng.Dispatch("catalog.category", func(context.Context) error {
		c.update(func(s *State) {
			s.CategoryID = id
			s.Page = 0
		})
		return nil
	})
}

// SetPage refetches the listing at page with the current filters.
func (c *Catalog) SetPage(page int) bool {
	if page < 0 {
		page = 0
	}
	return c.eng.Dispatch("catalog.page", func(context.Context) error {
		var f ir.ProductFilters
		c.update(func(s *State) {
			s.Page = page
			f = s.Filters()
		})
		c.fetchPage(f)
		return nil
	})
}

// LoadProduct fetches one product into Current.
func (c *Catalog) LoadProduct(id int64) bool {
	return c.eng.Dispatch("catalog.product", func(context.Context) error {
		c.begin()
		engine.Go(c.eng, "catalog.product.done", func(ctx context.Context) (ir.Product, error) {
			return c.gw.Product(ctx, id)
		}, func(p ir.Product, err error) {
			c.end(err, gateway.MsgFetchProduct, func(s *State) {
				s.Current = &p
			})
		})
		return nil
	})
}

// ClearCurrent forgets the product being viewed.
func (c *Catalog) ClearCurrent() bool {
	return c.eng.Dispatch("catalog.current.clear", func(context.Context) error {
		c.update(func(s *State) {
			s.Current = nil
		})
		return nil
	})
}

// LoadCategories fetches categories matching search.
func (c *Catalog) LoadCategories(search string) bool {
	return c.eng.Dispatch("catalog.categories", func(context.Context) error {
		c.begin()
		engine.Go(c.eng, "catalog.categories.done", func(ctx context.Context) ([]ir.Category, error) {
			return c.gw.Categories(ctx, search)
		}, func(cats []ir.Category, err error) {
			c.end(err, gateway.MsgFetchCategories, func(s *State) {
				s.Categories = cats
			})
		})
		return nil
	})
}

// ClearError clears Error.
func (c *Catalog) ClearError() bool {
	return c.eng.Dispatch("catalog.error.clear", func(context.Context) error {
		c.update(func(s *State) {
			s.Error = ""
		})
		return nil
	})
}

// fetchPage requests one listing page. Loop only.
func (c *Catalog) fetchPage(f ir.ProductFilters) {
	c.mu.Lock()
	c.listSeq++
	seq := c.listSeq
	c.mu.Unlock()
	c.begin()

	engine.Go(c.eng, "catalog.products.done", func(ctx context.Context) (ir.ProductPage, error) {
		return c.gw.Products(ctx, f)
	}, func(page ir.ProductPage, err error) {
		c.mu.RLock()
		superseded := seq != c.listSeq
		c.mu.RUnlock()
		if superseded {
			slog.Debug("catalog page dropped: superseded", "page", f.Page)
			c.end(nil, "", nil)
			return
		}
		c.end(err, gateway.MsgFetchProducts, func(s *State) {
			s.Items = page.Items
			s.Page = page.Page
			s.Size = page.Size
			s.TotalElements = page.TotalElements
			s.TotalPages = page.TotalPages
		})
	})
}

func (c *Catalog) begin() {
	c.mu.Lock()
	c.pending++
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()
}

// end settles one request, applying ok on success.
func (c *Catalog) end(err error, fallback string, ok func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending--
	c.state.Loading = c.pending > 0
	if err != nil {
		slog.Warn("catalog request failed", "error", err)
		c.state.Error = gateway.Message(err, fallback)
		return
	}
	if ok != nil {
		ok(&c.state)
	}
}

func (c *Catalog) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}
