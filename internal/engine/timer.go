package engine

import (
	"context"
	"time"
)

type timerEntry struct {
	t *time.Timer
}

// After schedules fn to run on the loop as a timer event once d has
// elapsed. The returned function cancels the timer if it has not fired.
//
// Timers do not hold RunUntilIdle open: an idle engine returns even when
// timers are pending.
func (e *Engine) After(d time.Duration, name string, fn func(ctx context.Context) error) (cancel func()) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()

	if e.queue.Closed() {
		return func() {}
	}

	e.timerSeq++
	id := e.timerSeq
	entry := &timerEntry{}
	entry.t = time.AfterFunc(d, func() {
		e.dropTimer(id)
		e.queue.Enqueue(Event{Kind: KindTimer, Name: name, Apply: fn})
	})
	e.timers[id] = entry

	return func() {
		entry.t.Stop()
		e.dropTimer(id)
	}
}

// PendingTimers returns the number of timers that have not fired.
func (e *Engine) PendingTimers() int {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	return len(e.timers)
}

func (e *Engine) dropTimer(id int64) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	delete(e.timers, id)
}

func (e *Engine) stopTimers() {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()

	for id, entry := range e.timers {
		entry.t.Stop()
		delete(e.timers, id)
	}
}
