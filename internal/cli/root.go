// Package cli implements revctl, the operator command line for the Revline
// backend: schema migrations, data seeding, counter reconciliation and load checks.
package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"revline/internal/bootstrap"
	"revline/internal/config"
	"revline/internal/middleware"

	"github.com/spf13/cobra"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Connector opens the database and Redis for a command.
type Connector func(ctx context.Context, cfg *config.Config, opts bootstrap.Options) (*bootstrap.Runtime, error)

// RootOptions holds global flags and the dependencies shared by subcommands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	LoadConfig func() (*config.Config, error)
	Connect    Connector

	cfg *config.Config
}

// NewRootCommand creates the revctl root command wired to the real config and runtime.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{
		LoadConfig: config.LoadConfig,
		Connect:    bootstrap.InitRuntime,
	})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "revctl",
		Short:         "Revline operator tooling",
		Long:          "Run migrations and seed data. Reconcile engagement counters, load-check the service layer and check API compatibility.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			cfg, err := opts.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg

			level := os.Getenv("LOG_LEVEL")
			if opts.Verbose {
				level = "debug"
			}
			// Logs go to stderr so JSON output stays parseable.
			middleware.ConfigureLoggerTo(cmd.ErrOrStderr(), cfg.Env, level)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewLoadCheckCommand(opts))
	cmd.AddCommand(NewAPICheckCommand(opts))

	return cmd
}

func closeRuntime(ctx context.Context, rt *bootstrap.Runtime) {
	if err := rt.Close(); err != nil {
		middleware.Logger.WarnContext(ctx, "runtime close failed", "error", err)
	}
}
