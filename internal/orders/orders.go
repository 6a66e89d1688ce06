// Package orders holds the signed-in account's order history.
package orders

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ilovedragoni/TestAutomationTarget/internal/engine"
	"github.com/ilovedragoni/TestAutomationTarget/internal/gateway"
	"github.com/ilovedragoni/TestAutomationTarget/internal/ir"
)

// Gateway lists orders.
type Gateway interface {
	Orders(ctx context.Context) ([]ir.OrderSummary, error)
}

// State is a copy of the order history.
type State struct {
	Items   []ir.OrderSummary `json:"items"`
	Loading bool              `json:"loading"`
	Error   string            `json:"error,omitempty"`
}

// History is the orders container.
type History struct {
	eng *engine.Engine
	gw  Gateway

	mu    sync.RWMutex
	state State
}

// New creates an empty History.
func New(eng *engine.Engine, gw Gateway) *History {
	return &History{eng: eng, gw: gw, state: State{Items: []ir.OrderSummary{}}}
}

// State returns a copy of the current state. Order lines are immutable and
// shared with the container.
func (h *History) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.state
	s.Items = make([]ir.OrderSummary, len(h.state.Items))
	copy(s.Items, h.state.Items)
	return s
}

// Load fetches the order history. A failure keeps the previous items.
func (h *History) Load() bool {
	return h.eng.Dispatch("orders.load", func(context.Context) error {
		h.update(func(s *State) {
			s.Loading = true
			s.Error = ""
		})
		engine.Go(h.eng, "orders.load.done", h.gw.Orders, func(items []ir.OrderSummary, err error) {
			h.update(func(s *State) {
				s.Loading = false
				if err != nil {
					slog.Warn("orders load failed", "error", err)
					s.Error = gateway.Message(err, gateway.MsgLoadOrders)
					return
				}
				s.Items = items
			})
		})
		return nil
	})
}

// Reset forgets the history, for use when the session ends.
func (h *History) Reset() bool {
	return h.eng.Dispatch("orders.reset", func(context.Context) error {
		h.update(func(s *State) {
			*s = State{Items: []ir.OrderSummary{}}
		})
		return nil
	})
}

// ClearError clears Error.
func (h *History) ClearError() bool {
	return h.eng.Dispatch("orders.error.clear", func(context.Context) error {
		h.update(func(s *State) {
			s.Error = ""
		})
		return nil
	})
}

func (h *History) update(fn func(*State)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.state)
}
