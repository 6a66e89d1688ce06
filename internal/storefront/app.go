// Package storefront wires the client state core into one App.
//
// Every component is constructed here and handed its collaborators; none
// of them looks anything up globally. The App owns the engine: callers
// issue commands on the containers and then Settle the loop.
package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ilovedragoni/TestAutomationTarget/internal/cart"
	"github.com/ilovedragoni/TestAutomationTarget/internal/catalog"
	"github.com/ilovedragoni/TestAutomationTarget/internal/checkout"
	"github.com/ilovedragoni/TestAutomationTarget/internal/config"
	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/orders"
	"github.com/ilovedragoni/TestAutomationTarget/internal/profile"
	"github.com/ilovedragoni/TestAutomationTarget/internal/reconcile"
	"github.com/ilovedragoni/TestAutomationTarget/internal/session"
	"github.com/ilovedragoni/TestAutomationTarget/internal/store"
)

// DefaultSettleTimeout bounds one Settle call.
const DefaultSettleTimeout = 30 * time.Second

// Option configures an App.
type Option func(*settings)

type settings struct {
	now        func() time.Time
	runIDs     engine.RunIDGenerator
	gatewayOps []gateway.Option
	engineOps  []engine.Option
}

// WithClock sets the wall clock used for cookie expiry and demo order ids.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithRunIDs sets the generator for the engine's run id.
func WithRunIDs(gen engine.RunIDGenerator) Option {
	return func(s *settings) {
		s.runIDs = gen
	}
}

// WithGatewayOptions passes extra options to the gateway client.
func WithGatewayOptions(opts ...gateway.Option) Option {
	return func(s *settings) {
		s.gatewayOps = append(s.gatewayOps, opts...)
	}
}

// WithEngineOptions passes extra options to the engine.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *settings) {
		s.engineOps = append(s.engineOps, opts...)
	}
}

// App is the assembled storefront client.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Gateway    *gateway.Client
	Engine     *engine.Engine
	Session    *session.Manager
	Cart       *cart.Store
	Reconciler *reconcile.Controller
	Checkout   *checkout.Checkout
	Catalog    *catalog.Catalog
	Profile    *profile.Profile
	Orders     *orders.History

	unsubscribe func()
}

// New opens the Local Store, restores persisted cookies into the gateway
// and wires every container. Call Boot before issuing commands.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}

	st, err := store.Open(cfg.Storage.Path, store.WithCartKey(cfg.Storage.CartKey))
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	gwOpts := append([]gateway.Option{
		gateway.WithTimeout(cfg.GetTimeout()),
		gateway.WithClock(s.now),
	}, s.gatewayOps...)
	client, err := gateway.New(cfg.API.BaseURL, gwOpts...)
	if err != nil {
		st.Close()
		return nil, err
	}

	cookies, err := st.LoadCookies(ctx, s.now())
	if err != nil {
		slog.Warn("persisted cookies unavailable", "error", err)
	}
	client.SetCookies(cookies)

	engOpts := []engine.Option{
		engine.WithJournal(st),
		engine.WithMaxSteps(cfg.Engine.MaxSteps),
	}
	if s.runIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDs(s.runIDs))
	}
	engOpts = append(engOpts, s.engineOps...)
	eng := engine.New(engOpts...)

	a := &App{
		Config:  cfg,
		Store:   st,
		Gateway: client,
		Engine:  eng,
	}
	a.Session = session.New(eng, client, session.WithFeedbackDuration(cfg.GetFeedbackDuration()))
	a.Cart = cart.NewStore(eng, client)
	a.Reconciler = reconcile.New(eng, a.Session, a.Cart, st)
	a.Checkout = checkout.New(eng, client, a.Cart, a.Session,
		checkout.WithCurrency(cfg.Checkout.Currency),
		checkout.WithAllowGuest(cfg.Checkout.AllowGuest),
	)
	a.Catalog = catalog.New(eng, client)
	a.Profile = profile.New(eng, client, a.Session)
	a.Orders = orders.New(eng, client)

	a.unsubscribe = a.Session.Transitions().Subscribe(a.onTransition)

	slog.Debug("storefront assembled", "api", client.BaseURL(), "db", cfg.Storage.Path, "run", eng.RunID())
	return a, nil
}

// onTransition drops account data once the session ends.
func (a *App) onTransition(t session.Transition) {
	if t.From == session.StatusAuthenticated && t.To == session.StatusGuest {
		a.Profile.Reset()
		a.Orders.Reset()
	}
}

// Boot hydrates the cart from the Local Store, restores the session and
// settles the loop.
func (a *App) Boot(ctx context.Context) error {
	a.Reconciler.Boot()
	if err := a.Session.Restore(); err != nil {
		return err
	}
	return a.Settle(ctx)
}

// Settle processes events until the loop is idle.
func (a *App) Settle(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultSettleTimeout)
		defer cancel()
	}
	return a.Engine.RunUntilIdle(ctx)
}

// Snapshot is a read-only view across the containers.
type Snapshot struct {
	Session   session.State    `json:"session"`
	Cart      cart.Snapshot    `json:"cart"`
	Reconcile reconcile.Status `json:"reconcile"`
	Checkout  checkout.State   `json:"checkout"`
}

// Snapshot returns the current state of the core containers.
func (a *App) Snapshot() Snapshot {
	return Snapshot{
		Session:   a.Session.State(),
		Cart:      a.Cart.Snapshot(),
		Reconcile: a.Reconciler.Status(),
		Checkout:  a.Checkout.State(),
	}
}

// Close persists the session cookies, stops the engine and closes the
// Local Store.
func (a *App) Close(ctx context.Context) error {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	a.Reconciler.Close()

	cookieErr := a.Store.SaveCookies(ctx, a.Gateway.Cookies())

	a.Engine.Stop()
	a.Engine.Wait()

	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close local store: %w", err)
	}
	if cookieErr != nil {
		return fmt.Errorf("persist cookies: %w", cookieErr)
	}
	return nil
}
