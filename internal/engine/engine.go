package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ilovedragoni/TestAutomationTarget/internal/store"
)

// RunIDGenerator generates the id that groups one engine's journal entries.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// Journal receives every processed event. The Local Store implements it.
type Journal interface {
	AppendJournal(ctx context.Context, e store.JournalEntry) error
}

// DefaultMaxSteps is the default maximum number of events one RunUntilIdle
// call may process before it gives up.
const DefaultMaxSteps = 10000

// Engine is the single-writer event loop.
//
// CRITICAL: All state mutations happen in the goroutine running Run or
// RunUntilIdle. Containers submit work with Dispatch, Go and After.
//
// Thread-safety model:
//   - Enqueue(), Dispatch(), Go(), After(): safe from any goroutine
//   - Run() / RunUntilIdle(): must be called from exactly one goroutine at a time
//   - Stop(): safe from any goroutine, idempotent
type Engine struct {
	clock    *Clock
	queue    *eventQueue
	runID    string
	journal  Journal
	maxSteps int
	serial   bool

	// Remote work started with Go that has not posted its completion yet.
	inflight atomic.Int64
	workers  sync.WaitGroup

	timersMu sync.Mutex
	timers   map[int64]*timerEntry
	timerSeq int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal sets the sink receiving every processed event.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithRunIDs sets the generator for the run id.
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runID = g.Generate()
	}
}

// WithMaxSteps sets the maximum events per RunUntilIdle call.
//
// Default: 10000 steps (DefaultMaxSteps)
// Use WithMaxSteps(10) for testing quota enforcement.
// A value <= 0 disables the quota.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithSerialWork runs the work passed to Go on the calling goroutine
// instead of a new one. Completions then land in the queue in the order
// the work was started, so a run produces the same trace every time.
// Used by the scenario harness; the loop blocks for each remote call.
func WithSerialWork() Option {
	return func(e *Engine) {
		e.serial = true
	}
}

// WithClock sets a pre-configured logical clock.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:    NewClock(),
		queue:    newEventQueue(),
		maxSteps: DefaultMaxSteps,
		timers:   make(map[int64]*timerEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = UUIDv7Generator{}.Generate()
	}
	return e
}

// RunID returns the id stamped on this engine's journal entries.
func (e *Engine) RunID() string {
	return e.runID
}

// Seq returns the seq of the last processed event.
func (e *Engine) Seq() int64 {
	return e.clock.Current()
}

// QueueLen returns the number of pending events.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// InFlight returns the number of remote operations not yet completed.
func (e *Engine) InFlight() int {
	return int(e.inflight.Load())
}

// Enqueue submits an event for processing by the loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Dispatch enqueues an intent event.
func (e *Engine) Dispatch(name string, apply func(ctx context.Context) error) bool {
	return e.queue.Enqueue(Event{Kind: KindIntent, Name: name, Apply: apply})
}

// Go runs work off the loop and applies then(result, err) on the loop as a
// completion event. It must be called from the loop or before the loop
// starts; the work itself may block.
//
// Work is never cancelled. The completion is applied whenever it arrives,
// even if newer work was started in the meantime.
//
// Returns false (and does not run work) if the engine has been stopped.
func Go[T any](e *Engine, name string, work func(ctx context.Context) (T, error), then func(T, error)) bool {
	if e.queue.Closed() {
		return false
	}

	e.inflight.Add(1)
	e.workers.Add(1)
	run := func() {
		defer e.workers.Done()

		v, err := work(context.Background())

		detail := "ok"
		if err != nil {
			detail = "failed: " + err.Error()
		}

		// Enqueue before decrementing so RunUntilIdle never observes an
		// empty queue with nothing in flight while a completion is pending.
		e.queue.Enqueue(Event{
			Kind:   KindCompletion,
			Name:   name,
			Detail: detail,
			Apply: func(context.Context) error {
				then(v, err)
				return nil
			},
		})
		e.inflight.Add(-1)
		e.queue.Notify()
	}
	if e.serial {
		run()
	} else {
		go run()
	}
	return true
}

// Run starts the long-running event loop.
// Blocks until context is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: On event failure, the error is logged with full event
// context and processing continues ("log and continue").
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "run", e.runID)

	for {
		// Try non-blocking dequeue first
		event, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, event)
			continue
		}

		// No event ready - wait for signal or context cancellation
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled", "run", e.runID)
			e.Stop()
			return ctx.Err()

		case _, open := <-e.queue.Wait():
			// The signal channel closes when queue is closed,
			// which will cause this case to fire immediately
			if !open && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed", "run", e.runID)
				return nil
			}
		}
	}
}

// RunUntilIdle processes events until the queue is empty and no remote work
// is in flight. Pending timers do not keep it running.
//
// Returns StepsExceededError when more than the configured max steps are
// processed, which means events keep producing events.
func (e *Engine) RunUntilIdle(ctx context.Context) error {
	quota := NewQuotaEnforcer(e.maxSteps)

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := quota.Check(e.runID); err != nil {
				slog.Error("max steps quota exceeded",
					"run", e.runID,
					"event", event.Name,
					"steps", quota.Current(),
					"limit", e.maxSteps,
				)
				return err
			}
			e.process(ctx, event)
			continue
		}

		if e.inflight.Load() == 0 {
			// A completion may have landed between TryDequeue and the
			// inflight load.
			if e.queue.Len() == 0 {
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, open := <-e.queue.Wait():
			if !open && e.queue.Len() == 0 {
				return nil
			}
		}
	}
}

// Stop shuts the engine down. Pending timers are cancelled and the queue is
// closed, which causes Run to return. Remote work already started runs to
// completion; its result is dropped.
func (e *Engine) Stop() {
	e.stopTimers()
	e.queue.Close()
}

// Wait blocks until all remote work started with Go has returned.
func (e *Engine) Wait() {
	e.workers.Wait()
}

// process applies one event and records it.
// CRITICAL: Called only from the loop goroutine - single-writer guarantee.
func (e *Engine) process(ctx context.Context, event Event) {
	seq := e.clock.Next()

	slog.Debug("processing event",
		"run", e.runID,
		"seq", seq,
		"kind", event.Kind.String(),
		"name", event.Name,
	)

	err := e.apply(ctx, event)
	if err != nil {
		// Design: "log and continue" keeps the loop alive for later events
		logEventError(e.runID, seq, event, err)
	}

	if e.journal == nil {
		return
	}
	entry := store.JournalEntry{
		RunID:  e.runID,
		Seq:    seq,
		Name:   event.Name,
		Kind:   event.Kind.String(),
		Detail: event.Detail,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if jerr := e.journal.AppendJournal(ctx, entry); jerr != nil {
		slog.Warn("journal append failed",
			"run", e.runID,
			"seq", seq,
			"name", event.Name,
			"error", jerr,
		)
	}
}

func (e *Engine) apply(ctx context.Context, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(e.runID, event.Name, r)
		}
	}()

	if event.Apply == nil {
		return fmt.Errorf("event %q missing apply function", event.Name)
	}
	return event.Apply(ctx)
}

// logEventError logs event processing failures with enough context to find
// the event in the journal.
func logEventError(runID string, seq int64, event Event, err error) {
	slog.Error("event processing failed",
		"run", runID,
		"seq", seq,
		"kind", event.Kind.String(),
		"name", event.Name,
		"detail", event.Detail,
		"error", err,
	)
}
