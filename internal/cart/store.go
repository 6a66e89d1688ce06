package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Gateway is the remote cart resource.
type Gateway interface {
	FetchCart(ctx context.Context) ([]ir.CartItem, error)
	ReplaceCart(ctx context.Context, lines []ir.CartLine) ([]ir.CartItem, error)
	MergeCart(ctx context.Context, lines []ir.CartLine) ([]ir.CartItem, error)
	ClearCart(ctx context.Context) error
}

// Mode selects where mutations are committed.
type Mode int

const (
	// ModeLocal commits mutations immediately (guest).
	ModeLocal Mode = iota
	// ModeServer commits only what the server returns.
	ModeServer
)

// String returns "local" or "server".
func (m Mode) String() string {
	if m == ModeServer {
		return "server"
	}
	return "local"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Origin tags a commit with its source.
type Origin string

const (
	// OriginLocal is a user mutation committed in ModeLocal.
	OriginLocal Origin = "local"
	// OriginServer is a cart returned by the server.
	OriginServer Origin = "server"
	// OriginHydrate is a cart loaded from the Local Store at boot.
	OriginHydrate Origin = "hydrate"
	// OriginReset is the empty cart installed when a session ends.
	OriginReset Origin = "reset"
)

// Change is published after every commit.
type Change struct {
	Items  []ir.CartItem
	Origin Origin
	Mode   Mode
	Digest string
}

// Snapshot is a consistent copy of the store. Subtotal and Count are
// computed from Items when the snapshot is taken.
type Snapshot struct {
	Items     []ir.CartItem `json:"items"`
	Syncing   bool          `json:"syncing"`
	LastError string        `json:"lastError,omitempty"`
	Subtotal  ir.Money      `json:"subtotal"`
	Count     int           `json:"count"`
	Mode      Mode          `json:"mode"`
}

// edit derives the desired cart from the current one.
type edit func([]ir.CartItem) []ir.CartItem

// Store owns the cart.
//
// Thread-safety: Snapshot and the exported operations are safe from any
// goroutine. Items, mode and sync status are mutated only on the engine loop.
type Store struct {
	eng *engine.Engine
	gw  Gateway

	mu        sync.RWMutex
	items     []ir.CartItem
	mode      Mode
	pending   int
	lastError string

	// generation increments on Reset. Remote results started under an
	// older generation belong to a session that has ended and are dropped.
	generation uint64

	// confirmed is false in ModeServer until a server result has been
	// committed. Edits made before then wait in deferred for a reload.
	confirmed bool
	reloading bool
	deferred  []edit

	changes engine.Feed[Change]
}

// NewStore creates an empty store in ModeLocal.
func NewStore(eng *engine.Engine, gw Gateway) *Store {
	return &Store{
		eng:   eng,
		gw:    gw,
		items: []ir.CartItem{},
	}
}

// Changes is the feed of commits.
func (s *Store) Changes() *engine.Feed[Change] {
	return &s.changes
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := Clone(s.items)
	return Snapshot{
		Items:     items,
		Syncing:   s.pending > 0,
		LastError: s.lastError,
		Subtotal:  Subtotal(items),
		Count:     Count(items),
		Mode:      s.mode,
	}
}

// Add increments p's quantity, inserting it when absent.
func (s *Store) Add(p ir.Product) bool {
	return s.eng.Dispatch("cart.add", func(context.Context) error {
		s.mutate(func(items []ir.CartItem) []ir.CartItem { return Add(items, p) })
		return nil
	})
}

// Decrement lowers productID's quantity, removing it at zero.
func (s *Store) Decrement(productID int64) bool {
	return s.eng.Dispatch("cart.decrement", func(context.Context) error {
		s.mutate(func(items []ir.CartItem) []ir.CartItem { return Decrement(items, productID) })
		return nil
	})
}

// Remove drops productID.
func (s *Store) Remove(productID int64) bool {
	return s.eng.Dispatch("cart.remove", func(context.Context) error {
		s.mutate(func(items []ir.CartItem) []ir.CartItem { return Remove(items, productID) })
		return nil
	})
}

// Clear empties the cart. In ModeServer the server cart is cleared and the
// local items follow on success.
func (s *Store) Clear() bool {
	return s.eng.Dispatch("cart.clear", func(context.Context) error {
		if s.currentMode() == ModeServer {
			s.clearServer(nil)
			return nil
		}
		s.commit([]ir.CartItem{}, OriginLocal)
		return nil
	})
}

// ReplaceAll installs items wholesale. Duplicate product ids collapse to the
// first entry and non-positive quantities are dropped.
func (s *Store) ReplaceAll(items []ir.CartItem, origin Origin) bool {
	items = Clone(items)
	return s.eng.Dispatch("cart.replace", func(context.Context) error {
		s.commit(Normalize(items), origin)
		return nil
	})
}

// Reset empties the cart, returns to ModeLocal and clears the sync error.
// Results of remote calls started before Reset are discarded.
func (s *Store) Reset() bool {
	return s.eng.Dispatch("cart.reset", func(context.Context) error {
		s.mu.Lock()
		s.generation++
		s.mode = ModeLocal
		s.lastError = ""
		s.confirmed = false
		s.reloading = false
		s.deferred = nil
		s.mu.Unlock()
		s.commit([]ir.CartItem{}, OriginReset)
		return nil
	})
}

// ClearSyncError clears LastError.
func (s *Store) ClearSyncError() bool {
	return s.eng.Dispatch("cart.error.clear", func(context.Context) error {
		s.mu.Lock()
		s.lastError = ""
		s.mu.Unlock()
		return nil
	})
}

// Load switches to ModeServer and replaces the cart with the server cart.
// done, when non-nil, runs on the loop once the call settles.
func (s *Store) Load(done func(error)) bool {
	return s.eng.Dispatch("cart.load", func(context.Context) error {
		s.setMode(ModeServer)
		s.remote("cart.load.done", gateway.MsgLoadCart, s.gw.FetchCart, done)
		return nil
	})
}

// Merge switches to ModeServer and sends items to the server's merge
// operation. The cart becomes whatever the server returns.
func (s *Store) Merge(items []ir.CartItem, done func(error)) bool {
	lines := ir.Lines(items)
	return s.eng.Dispatch("cart.merge", func(context.Context) error {
		s.setMode(ModeServer)
		s.remote("cart.merge.done", gateway.MsgMergeCart, func(ctx context.Context) ([]ir.CartItem, error) {
			return s.gw.MergeCart(ctx, lines)
		}, done)
		return nil
	})
}

// ClearServer clears the server cart; the local items are emptied on success.
func (s *Store) ClearServer(done func(error)) bool {
	return s.eng.Dispatch("cart.clear.server", func(context.Context) error {
		s.clearServer(done)
		return nil
	})
}

// mutate commits op locally or sends its result to the server. In
// ModeServer before the server cart has been read, op waits for a reload.
// Loop only.
func (s *Store) mutate(op edit) {
	s.mu.RLock()
	mode, confirmed := s.mode, s.confirmed
	s.mu.RUnlock()

	switch {
	case mode == ModeLocal:
		s.commit(op(s.current()), OriginLocal)
	case !confirmed:
		s.reloadThen(op)
	default:
		s.replace(op(s.current()))
	}
}

// reloadThen queues op and fetches the server cart once. The queued edits
// are applied to the fetched items; if the fetch fails they are dropped
// and LastError is set. Items the server never returned are never sent.
// Loop only.
func (s *Store) reloadThen(op edit) {
	s.mu.Lock()
	s.deferred = append(s.deferred, op)
	started := s.reloading
	s.reloading = true
	gen := s.generation
	s.mu.Unlock()
	if started {
		return
	}

	slog.Info("cart not confirmed by server: reloading before edit")
	s.remote("cart.reload.done", gateway.MsgLoadCart, s.gw.FetchCart, func(err error) {
		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			return
		}
		ops := s.deferred
		s.deferred = nil
		s.reloading = false
		confirmed := s.confirmed
		s.mu.Unlock()

		if err != nil || !confirmed {
			slog.Warn("cart edits dropped: server cart unavailable", "edits", len(ops))
			return
		}
		desired := s.current()
		for _, op := range ops {
			desired = op(desired)
		}
		s.replace(desired)
	})
}

// replace sends desired as the whole server cart. Loop only.
func (s *Store) replace(desired []ir.CartItem) {
	if ir.CartDigest(desired) == ir.CartDigest(s.current()) {
		slog.Debug("cart replace skipped: no change")
		return
	}

	lines := ir.Lines(desired)
	s.remote("cart.replace.done", gateway.MsgSyncCart, func(ctx context.Context) ([]ir.CartItem, error) {
		return s.gw.ReplaceCart(ctx, lines)
	}, nil)
}

func (s *Store) clearServer(done func(error)) {
	s.remote("cart.clear.server.done", gateway.MsgClearCart, func(ctx context.Context) ([]ir.CartItem, error) {
		if err := s.gw.ClearCart(ctx); err != nil {
			return nil, err
		}
		return []ir.CartItem{}, nil
	}, done)
}

// remote runs one server call and commits its result. Loop only.
func (s *Store) remote(name, fallback string, work func(context.Context) ([]ir.CartItem, error), done func(error)) {
	s.mu.Lock()
	s.pending++
	s.lastError = ""
	gen := s.generation
	s.mu.Unlock()

	engine.Go(s.eng, name, work, func(items []ir.CartItem, err error) {
		s.mu.Lock()
		s.pending--
		stale := gen != s.generation
		if err != nil && !stale {
			s.lastError = gateway.Message(err, fallback)
		}
		s.mu.Unlock()

		switch {
		case stale:
			slog.Info("cart result dropped: session ended", "op", name)
		case err != nil:
			slog.Warn("cart sync failed", "op", name, "error", err)
		default:
			s.commit(Normalize(items), OriginServer)
		}

		if done != nil {
			done(err)
		}
	})
}

// commit installs items and publishes the change. Loop only.
func (s *Store) commit(items []ir.CartItem, origin Origin) {
	s.mu.Lock()
	s.items = items
	mode := s.mode
	if origin == OriginServer && mode == ModeServer {
		s.confirmed = true
	}
	s.mu.Unlock()

	s.changes.Publish(Change{
		Items:  Clone(items),
		Origin: origin,
		Mode:   mode,
		Digest: ir.CartDigest(items),
	})
}

func (s *Store) current() []ir.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

func (s *Store) currentMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// setMode switches modes. Entering ModeServer leaves the cart unconfirmed
// until a server result is committed.
func (s *Store) setMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == ModeServer && s.mode != ModeServer {
		s.confirmed = false
	}
	s.mode = m
}
