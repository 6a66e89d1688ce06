package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ilovedragoni/TestAutomationTarget/internal/cart"
	"github.com/ilovedragoni/TestAutomationTarget/internal/checkout"
	"github.com/ilovedragoni/TestAutomationTarget/internal/session"
)

// Exit codes for storefront commands.
const (
	ExitSuccess      = 0 // Command ran and the shop accepted it
	ExitFailure      = 1 // The shop or the client refused (rejected order, failed sign-in, failing scenario)
	ExitCommandError = 2 // The command could not run (bad arguments, unreadable config, store unavailable)
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError creates an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter prints command results as a CLIResponse envelope (json)
// or as shopper-readable text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"` // one of the ErrCode constants
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// textView pairs a JSON payload with a custom text rendering.
type textView struct {
	data any
	text func(w io.Writer)
}

// Success prints a result. In text mode cart snapshots, session state and
// checkout results get their own layout; other values print with %v.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		if v, ok := data.(textView); ok {
			data = v.data
		}
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}

	switch v := data.(type) {
	case textView:
		v.text(f.Writer)
	case cart.Snapshot:
		writeCart(f.Writer, v)
	case session.State:
		writeSession(f.Writer, v)
	case authView:
		writeSession(f.Writer, v.Session)
	case checkout.State:
		writeOrderPlaced(f.Writer, v)
	default:
		fmt.Fprintln(f.Writer, data)
	}
	return nil
}

// Error prints a failure. Checkout field errors are always listed in text
// mode, one per line in field order; other details only with --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	switch v := details.(type) {
	case checkout.FieldErrors:
		writeFieldErrors(f.Writer, v)
	case cart.Snapshot:
		if f.Verbose {
			writeCart(f.Writer, v)
		}
	default:
		if f.Verbose && details != nil {
			fmt.Fprintf(f.Writer, "Details: %v\n", details)
		}
	}
	return nil
}

// VerboseLog prints a diagnostic line with --verbose. It goes to ErrWriter
// so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func writeFieldErrors(w io.Writer, errs checkout.FieldErrors) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(w, "  %s: %s\n", field, errs[field])
	}
}

func writeOrderPlaced(w io.Writer, state checkout.State) {
	fmt.Fprintln(w, state.SuccessMessage)
	fmt.Fprintf(w, "Order: %s\n", state.LastOrderID)
	if state.LastResponse != nil && state.LastResponse.Demo {
		fmt.Fprintln(w, "(demo order: the backend does not implement checkout)")
	}
}
