package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ilovedragoni/TestAutomationTarget/internal/config"
	"github.com/ilovedragoni/TestAutomationTarget/internal/storefront"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric   = "E001" // Generic/unknown error
	ErrCodeConfig    = "E002" // Config unreadable or invalid
	ErrCodeStore     = "E003" // Local store could not be opened
	ErrCodeRejected  = "E004" // Command not accepted by the engine
	ErrCodeNotFound  = "E005" // Resource not found
	ErrCodeRemote    = "E006" // Backend call failed
	ErrCodeInvalid   = "E007" // Form validation failed
	ErrCodeWriteFile = "E008" // File write error

	// Harness errors
	ErrCodeScenarioLoad = "E101" // Scenario could not be parsed
	ErrCodeScenarioRun  = "E102" // Scenario infrastructure failure
	ErrCodeTestFailed   = "E103" // One or more scenarios failed
)

// loadConfig reads the config file and applies the --db and --api
// overrides on top of it.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Database == "" && opts.APIURL == "" {
		return cfg, nil
	}
	if opts.Database != "" {
		cfg.Storage.Path = opts.Database
	}
	if opts.APIURL != "" {
		cfg.API.BaseURL = opts.APIURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withApp boots a storefront App, runs fn and closes the App, which
// persists the session cookies. fn's error wins over a close error.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *storefront.App) error) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return fail(cmd, opts, ErrCodeConfig, ExitCommandError, "failed to load config", err)
	}
	configureLogging(cmd.ErrOrStderr(), opts, cfg.GetLogLevel(), cfg.Logging.Format)

	app, err := storefront.New(ctx, cfg)
	if err != nil {
		return fail(cmd, opts, ErrCodeStore, ExitCommandError, "failed to open storefront", err)
	}

	formatter(cmd, opts).VerboseLog("run %s: api %s, store %s", app.Engine.RunID(), cfg.API.BaseURL, cfg.Storage.Path)

	runErr := app.Boot(ctx)
	if runErr != nil {
		runErr = fail(cmd, opts, ErrCodeGeneric, ExitCommandError, "failed to boot storefront", runErr)
	} else {
		runErr = fn(ctx, app)
	}

	if err := app.Close(ctx); err != nil && runErr == nil {
		return fail(cmd, opts, ErrCodeStore, ExitCommandError, "failed to close storefront", err)
	}
	return runErr
}

// settle waits for the loop to go idle after a command. A command the
// engine refused is reported as a failure.
func settle(ctx context.Context, app *storefront.App, accepted bool, what string) error {
	if !accepted {
		return NewExitError(ExitFailure, fmt.Sprintf("%s was not accepted", what))
	}
	if err := app.Settle(ctx); err != nil {
		return WrapExitError(ExitCommandError, "event loop did not settle", err)
	}
	return nil
}

// emit prints data as a CLIResponse in JSON mode, or through text
// otherwise.
func emit(cmd *cobra.Command, opts *RootOptions, data any, text func(w io.Writer)) error {
	return formatter(cmd, opts).Success(textView{data: data, text: text})
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// fail prints an error response and returns the matching ExitError.
func fail(cmd *cobra.Command, opts *RootOptions, code string, exit int, message string, cause error) error {
	var details any
	shown := message
	if cause != nil {
		details = cause.Error()
		if opts.Format != "json" {
			shown = message + ": " + cause.Error()
		}
	}
	_ = formatter(cmd, opts).Error(code, shown, details)
	if cause != nil {
		return WrapExitError(exit, message, cause)
	}
	return NewExitError(exit, message)
}

// failWith prints an error response carrying structured details.
func failWith(cmd *cobra.Command, opts *RootOptions, code, message string, details any) error {
	_ = formatter(cmd, opts).Error(code, message, details)
	return NewExitError(ExitFailure, message)
}

// parseID parses a positive numeric id argument.
func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s id %q", what, arg))
	}
	return id, nil
}
