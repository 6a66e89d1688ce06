package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RuntimeError
		want string
	}{
		{
			name: "run and event",
			err:  &RuntimeError{Code: ErrCodeEventPanic, Message: "event panicked: x", RunID: "r1", Event: "cart.add"},
			want: "EVENT_PANIC: event panicked: x (run=r1, event=cart.add)",
		},
		{
			name: "event only",
			err:  &RuntimeError{Code: ErrCodeEventPanic, Message: "m", Event: "cart.add"},
			want: "EVENT_PANIC: m (event=cart.add)",
		},
		{
			name: "bare",
			err:  ErrStopped,
			want: "STOPPED: engine stopped",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	panicErr := fmt.Errorf("wrapped: %w", NewPanicError("r", "e", "boom"))
	assert.True(t, IsPanicError(panicErr))
	assert.False(t, IsQuotaError(panicErr))

	quotaErr := NewQuotaError("r", 11, 10)
	assert.True(t, IsQuotaError(quotaErr))
	assert.Equal(t, "10", quotaErr.Details["max_steps"])

	assert.True(t, IsStopped(ErrStopped))
	assert.False(t, IsStopped(quotaErr))
}
