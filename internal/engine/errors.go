package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected during engine execution.
//
// Runtime errors include:
//   - Quota exceeded: a settle pass processed more events than allowed
//   - Event panic: an event's Apply panicked
//   - Stopped: the engine no longer accepts events
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the engine run.
	RunID string

	// Event names the event involved, if any.
	Event string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates the loop exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeEventPanic indicates an event's Apply panicked.
	ErrCodeEventPanic RuntimeErrorCode = "EVENT_PANIC"

	// ErrCodeStopped indicates the engine has been stopped.
	ErrCodeStopped RuntimeErrorCode = "STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RunID != "" && e.Event != "" {
		return fmt.Sprintf("%s: %s (run=%s, event=%s)", e.Code, e.Message, e.RunID, e.Event)
	}
	if e.Event != "" {
		return fmt.Sprintf("%s: %s (event=%s)", e.Code, e.Message, e.Event)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrStopped is returned when work is submitted to a stopped engine.
var ErrStopped = &RuntimeError{Code: ErrCodeStopped, Message: "engine stopped"}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsPanicError returns true if the error came from a panicking event.
func IsPanicError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeEventPanic
	}
	return false
}

// IsStopped returns true if the error reports a stopped engine.
func IsStopped(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStopped
	}
	return false
}

// NewPanicError creates a RuntimeError for a recovered panic.
func NewPanicError(runID, event string, recovered any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeEventPanic,
		Message: fmt.Sprintf("event panicked: %v", recovered),
		RunID:   runID,
		Event:   event,
	}
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(runID string, steps, maxSteps int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("run exceeded max steps (%d >= %d)", steps, maxSteps),
		RunID:   runID,
		Details: map[string]string{
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
	}
}
