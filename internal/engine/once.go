package engine

import "sync"

// OnceGuard allows an operation at most once per (epoch, key).
//
// The reconciliation controller opens a new epoch each time a session ends
// and keys the initial cart operation by "initial". The first authenticated
// transition in an epoch acquires the key and runs merge-on-sign-in or
// load-on-restore; any later one in the same epoch is refused. This is what
// prevents guest items from being merged twice.
//
// CRITICAL DISTINCTION from the cart's syncing counter:
//   - Syncing: "Is any remote cart call outstanding?" (presentation hint)
//   - OnceGuard: "Has the initial operation for this epoch been claimed?" (invariant)
type OnceGuard struct {
	mu      sync.Mutex
	claimed map[uint64]map[string]bool // map[epoch]map[key]bool
}

// NewOnceGuard creates an empty guard.
func NewOnceGuard() *OnceGuard {
	return &OnceGuard{
		claimed: make(map[uint64]map[string]bool),
	}
}

// TryAcquire claims key within epoch.
//
// Returns true for the first claim and false for every later one.
//
// Thread-safe: Can be called concurrently.
func (g *OnceGuard) TryAcquire(epoch uint64, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.claimed[epoch] == nil {
		g.claimed[epoch] = make(map[string]bool)
	}
	if g.claimed[epoch][key] {
		return false
	}
	g.claimed[epoch][key] = true
	return true
}

// Claimed reports whether key has been claimed within epoch.
func (g *OnceGuard) Claimed(epoch uint64, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.claimed[epoch][key]
}

// Clear removes all claims for an epoch.
//
// Thread-safe: Can be called concurrently.
func (g *OnceGuard) Clear(epoch uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.claimed, epoch)
}

// Size returns the number of epochs with claims.
//
// Used for testing and introspection.
func (g *OnceGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.claimed)
}
