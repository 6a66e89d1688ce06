package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ilovedragoni/TestAutomationTarget/internal/cart"
	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
	"github.com/ilovedragoni/TestAutomationTarget/internal/session"
)

// State is the controller state.
type State int

const (
	StateUninitialized State = iota
	StateHydratedGuest
	StateSyncingToServer
	StateServerAuthoritative
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHydratedGuest:
		return "hydratedGuest"
	case StateSyncingToServer:
		return "syncingToServer"
	case StateServerAuthoritative:
		return "serverAuthoritative"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// initialKey is the OnceGuard key of an epoch's initial cart operation.
const initialKey = "initial"

// firstEpoch is the epoch open when the controller is created. A new epoch
// opens each time a session ends.
const firstEpoch uint64 = 1

// LocalStore persists the guest cart.
type LocalStore interface {
	LoadCart(ctx context.Context) ([]ir.CartItem, error)
	SaveCart(ctx context.Context, items []ir.CartItem) error
	ClearCart(ctx context.Context) error
}

// Sessions is the part of the Session Manager the controller observes.
type Sessions interface {
	State() session.State
	Transitions() *engine.Feed[session.Transition]
}

// Carts is the part of the Cart Store the controller drives.
type Carts interface {
	Changes() *engine.Feed[cart.Change]
	ReplaceAll(items []ir.CartItem, origin cart.Origin) bool
	Reset() bool
	Load(done func(error)) bool
	Merge(items []ir.CartItem, done func(error)) bool
}

// Status is a copy of the controller state.
type Status struct {
	State     State  `json:"state"`
	Epoch     uint64 `json:"epoch"`
	LastError string `json:"lastError,omitempty"`
}

// Controller reconciles the session and the cart.
//
// Thread-safety: Status and Boot are safe from any goroutine. Feed handlers
// run on the engine loop.
type Controller struct {
	eng      *engine.Engine
	sessions Sessions
	carts    Carts
	local    LocalStore
	guard    *engine.OnceGuard

	// ctx is used for Local Store writes made from feed handlers.
	ctx context.Context

	mu     sync.RWMutex
	status Status

	unsubscribe []func()
}

// New creates a controller and subscribes it to the session and cart feeds.
func New(eng *engine.Engine, sessions Sessions, carts Carts, local LocalStore) *Controller {
	c := &Controller{
		eng:      eng,
		sessions: sessions,
		carts:    carts,
		local:    local,
		guard:    engine.NewOnceGuard(),
		ctx:      context.Background(),
		status:   Status{Epoch: firstEpoch},
	}
	c.unsubscribe = append(c.unsubscribe,
		sessions.Transitions().Subscribe(c.onTransition),
		carts.Changes().Subscribe(c.onChange),
	)
	return c
}

// Close detaches the controller from its feeds.
func (c *Controller) Close() {
	for _, fn := range c.unsubscribe {
		fn()
	}
	c.unsubscribe = nil
}

// Status returns a copy of the controller state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Boot loads the Local Store cart into the Cart Store. A missing or
// corrupt saved cart boots an empty cart. Only the first call has effect.
func (c *Controller) Boot() bool {
	return c.eng.Dispatch("reconcile.boot", func(ctx context.Context) error {
		if c.Status().State != StateUninitialized {
			slog.Debug("reconcile boot skipped", "state", c.Status().State.String())
			return nil
		}

		items, err := c.local.LoadCart(ctx)
		if err != nil {
			slog.Warn("local cart unavailable", "error", err)
			items = nil
		}

		c.carts.ReplaceAll(items, cart.OriginHydrate)
		c.setState(StateHydratedGuest)
		slog.Info("cart hydrated", "items", len(items))
		return nil
	})
}

// onTransition reacts to session status changes. Loop only.
func (c *Controller) onTransition(t session.Transition) {
	switch t.To {
	case session.StatusAuthenticated:
		c.onAuthenticated(t)
	case session.StatusGuest:
		c.onGuest(t)
	}
}

// onAuthenticated runs the epoch's single merge or load. Any later
// authenticated transition in the same epoch is refused by the guard.
func (c *Controller) onAuthenticated(t session.Transition) {
	epoch := c.Status().Epoch
	if !c.guard.TryAcquire(epoch, initialKey) {
		slog.Debug("reconcile: initial cart operation already claimed", "epoch", epoch, "cause", string(t.Cause))
		return
	}
	c.setState(StateSyncingToServer)

	done := func(err error) {
		if c.Status().Epoch != epoch {
			// The session ended while the call was outstanding.
			return
		}
		c.mu.Lock()
		c.status.State = StateServerAuthoritative
		c.status.LastError = ""
		if err != nil {
			c.status.LastError = err.Error()
		}
		c.mu.Unlock()

		if err != nil {
			// The cart store reloads the server cart before the next edit
			// is sent; onChange finishes the hand-over then.
			slog.Warn("initial cart sync failed", "epoch", epoch, "error", err)
			return
		}
		// The cart now lives server-side.
		if cerr := c.local.ClearCart(c.ctx); cerr != nil {
			slog.Warn("local cart clear failed", "error", cerr)
		}
	}

	if t.Cause == session.CauseSignedIn && len(t.MergeItems) > 0 {
		slog.Info("reconcile: merging guest cart", "epoch", epoch, "items", len(t.MergeItems))
		c.carts.Merge(t.MergeItems, done)
		return
	}
	slog.Info("reconcile: loading server cart", "epoch", epoch, "cause", string(t.Cause))
	c.carts.Load(done)
}

// onGuest resets the cart when a session ends. A failed restore keeps the
// hydrated guest cart rather than clearing it, on purpose: the shopper
// never had a session and their guest items are still theirs.
func (c *Controller) onGuest(t session.Transition) {
	if t.Cause == session.CauseRestoreFailed {
		// Keep the hydrated guest cart.
		if c.Status().State == StateUninitialized {
			c.setState(StateHydratedGuest)
		}
		return
	}

	// Signed out or account deleted: nothing from the ended session is
	// kept locally.
	old := c.Status().Epoch
	c.guard.Clear(old)
	c.nextEpoch()

	c.carts.Reset()
	if err := c.local.ClearCart(c.ctx); err != nil {
		slog.Warn("local cart clear failed", "error", err)
	}
	c.mu.Lock()
	c.status.State = StateHydratedGuest
	c.status.LastError = ""
	c.mu.Unlock()
}

// onChange persists guest edits and completes a hand-over that failed
// initially once the server cart is read. Loop only.
func (c *Controller) onChange(ch cart.Change) {
	authenticated := c.sessions.State().Status == session.StatusAuthenticated
	if ch.Origin == cart.OriginServer {
		if authenticated {
			c.recovered()
		}
		return
	}
	if ch.Origin != cart.OriginLocal || authenticated {
		return
	}
	if err := c.local.SaveCart(c.ctx, ch.Items); err != nil {
		slog.Warn("local cart save failed", "error", err)
	}
}

// recovered clears the initial sync error after a later server commit.
func (c *Controller) recovered() {
	c.mu.Lock()
	failed := c.status.State == StateServerAuthoritative && c.status.LastError != ""
	c.status.LastError = ""
	c.mu.Unlock()
	if !failed {
		return
	}
	slog.Info("reconcile: server cart recovered", "epoch", c.Status().Epoch)
	if err := c.local.ClearCart(c.ctx); err != nil {
		slog.Warn("local cart clear failed", "error", err)
	}
}

func (c *Controller) nextEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Epoch++
	return c.status.Epoch
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.State = s
}
