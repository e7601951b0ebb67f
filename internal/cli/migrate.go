package cli

import (
	"fmt"
	"io"
	"strconv"

	"revline/internal/bootstrap"
	"revline/internal/database"

	"github.com/spf13/cobra"
)

type migrationRef struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
}

func refs(ms []database.Migration) []migrationRef {
	out := make([]migrationRef, 0, len(ms))
	for _, m := range ms {
		out = append(out, migrationRef{Version: m.Version, Name: m.Name})
	}
	return out
}

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect or roll back schema migrations",
	}
	cmd.AddCommand(newMigrateUpCommand(rootOpts))
	cmd.AddCommand(newMigrateAutoCommand(rootOpts))
	cmd.AddCommand(newMigrateStatusCommand(rootOpts))
	cmd.AddCommand(newMigrateRollbackCommand(rootOpts))
	return cmd
}

func newMigrateUpCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := opts.Connect(ctx, opts.cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer closeRuntime(ctx, rt)

			applied, err := database.RunMigrations(ctx, rt.DB)
			if err != nil {
				return fmt.Errorf("sql migrations failed: %w", err)
			}
			result := struct {
				Applied []migrationRef `json:"applied"`
			}{refs(applied)}
			return render(cmd, opts, result, func(w io.Writer) error {
				if len(applied) == 0 {
					_, err := fmt.Fprintln(w, "schema is up to date")
					return err
				}
				for _, m := range applied {
					if _, err := fmt.Fprintf(w, "applied %s\n", m.String()); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newMigrateAutoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Run GORM AutoMigrate for every persistent model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := opts.Connect(ctx, opts.cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer closeRuntime(ctx, rt)

			cfg := *opts.cfg
			cfg.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(ctx, rt.DB, &cfg); err != nil {
				return fmt.Errorf("auto schema apply failed: %w", err)
			}
			return render(cmd, opts, map[string]bool{"ok": true}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, "automigrations applied")
				return err
			})
		},
	}
}

func newMigrateStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schema policy and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := opts.Connect(ctx, opts.cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer closeRuntime(ctx, rt)

			status, err := database.GetSchemaStatus(ctx, rt.DB, opts.cfg)
			if err != nil {
				return fmt.Errorf("schema status failed: %w", err)
			}
			result := struct {
				Mode        string         `json:"mode"`
				Environment string         `json:"environment"`
				RunSQL      bool           `json:"run_sql"`
				RunAuto     bool           `json:"run_auto"`
				Applied     []int          `json:"applied"`
				Pending     []migrationRef `json:"pending"`
			}{status.Mode, status.Environment, status.RunSQL, status.RunAutoMigrate,
				status.AppliedVersions, refs(status.PendingMigrations)}

			return render(cmd, opts, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
					result.Mode, result.Environment, result.RunSQL, result.RunAuto, len(result.Applied), len(result.Pending))
				if err != nil {
					return err
				}
				for _, m := range status.PendingMigrations {
					if _, err := fmt.Fprintf(w, "pending: %s\n", m.String()); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newMigrateRollbackCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <version>",
		Short: "Revert one applied migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}

			ctx := cmd.Context()
			rt, err := opts.Connect(ctx, opts.cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer closeRuntime(ctx, rt)

			if err := database.RollbackMigration(ctx, rt.DB, version); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			return render(cmd, opts, map[string]int{"rolled_back": version}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "rolled back migration %d\n", version)
				return err
			})
		},
	}
}
