package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ilovedragoni/TestAutomationTarget/internal/config"
)

// NewConfigCommand creates the config command and its subcommands.
func NewConfigCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, validate or create the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Print the effective configuration",
		Long:          "Print the configuration after defaults, environment overrides and flags.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return fail(cmd, opts, ErrCodeConfig, ExitCommandError, "failed to load config", err)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render config", err)
			}
			return emit(cmd, opts, cfg, func(w io.Writer) {
				_, _ = w.Write(data)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "validate",
		Short:         "Check the config file against the schema",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(opts); err != nil {
				return fail(cmd, opts, ErrCodeConfig, ExitFailure, "invalid config", err)
			}
			return emit(cmd, opts, map[string]string{"path": opts.ConfigPath}, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s is valid\n", opts.ConfigPath)
			})
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:           "init",
		Short:         "Write a config file with the defaults",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.ConfigPath); err == nil && !force {
				return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists (use --force to overwrite)", opts.ConfigPath))
			}
			if err := config.DefaultConfig().Save(opts.ConfigPath); err != nil {
				return fail(cmd, opts, ErrCodeWriteFile, ExitCommandError, "failed to write config", err)
			}
			return emit(cmd, opts, map[string]string{"path": opts.ConfigPath}, func(w io.Writer) {
				fmt.Fprintf(w, "Wrote %s\n", opts.ConfigPath)
			})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}
