package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ilovedragoni/TestAutomationTarget/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Limit int
	Run   string // optional - one process run only
}

// TraceResult holds the trace output.
type TraceResult struct {
	Entries []store.JournalEntry `json:"entries"`
	Stats   TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Intents     int `json:"intents"`
	Completions int `json:"completions"`
	Timers      int `json:"timers"`
	Failures    int `json:"failures"`
	Runs        int `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the event journal",
		Long: `Show the events the client processed, as journaled in the local store.

Each line is one event: the process run it belongs to, its sequence
number within that run, its kind (intent, completion or timer) and its
name. Completions carry "ok" or the failure.

The trace command reads the journal directly and does not boot the
client, so it adds no events of its own.

Examples:
  storefront trace
  storefront trace --limit 20
  storefront trace --run 0b6c6c1e-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "show the most recent N events (0 for all)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show only one run")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return fail(cmd, opts.RootOptions, ErrCodeConfig, ExitCommandError, "failed to load config", err)
	}

	// Open database
	st, err := store.Open(cfg.Storage.Path, store.WithCartKey(cfg.Storage.CartKey))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	entries, err := readTrace(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		Entries: entries,
		Stats:   traceStats(entries),
	}

	// Output results
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result)
}

func readTrace(ctx context.Context, st *store.Store, opts *TraceOptions) ([]store.JournalEntry, error) {
	if opts.Run == "" {
		return st.ReadJournal(ctx, opts.Limit)
	}
	entries, err := st.ReadRun(ctx, opts.Run)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[len(entries)-opts.Limit:]
	}
	return entries, nil
}

func traceStats(entries []store.JournalEntry) TraceStats {
	stats := TraceStats{TotalEvents: len(entries)}
	runs := make(map[string]bool)
	for _, e := range entries {
		runs[e.RunID] = true
		switch e.Kind {
		case store.KindIntent:
			stats.Intents++
		case store.KindCompletion:
			stats.Completions++
		case store.KindTimer:
			stats.Timers++
		}
		if e.Error != "" || strings.HasPrefix(e.Detail, "failed") {
			stats.Failures++
		}
	}
	stats.Runs = len(runs)
	return stats
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as human-readable text.
func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No events recorded.")
		return nil
	}

	lastRun := ""
	for _, e := range result.Entries {
		if e.RunID != lastRun {
			fmt.Fprintf(w, "Run %s\n", e.RunID)
			lastRun = e.RunID
		}
		fmt.Fprintf(w, "  [%d] %-10s %s", e.Seq, e.Kind, e.Name)
		if e.Detail != "" {
			fmt.Fprintf(w, " (%s)", e.Detail)
		}
		if e.Error != "" {
			fmt.Fprintf(w, " error: %s", e.Error)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Stats:")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Intents:      %d\n", result.Stats.Intents)
	fmt.Fprintf(w, "  Completions:  %d\n", result.Stats.Completions)
	fmt.Fprintf(w, "  Timers:       %d\n", result.Stats.Timers)
	fmt.Fprintf(w, "  Failures:     %d\n", result.Stats.Failures)
	fmt.Fprintf(w, "  Runs:         %d\n", result.Stats.Runs)

	return nil
}
