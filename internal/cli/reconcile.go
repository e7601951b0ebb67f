package cli

import (
	"errors"
	"fmt"
	"io"

	"revline/internal/bootstrap"
	"revline/internal/cache"
	"revline/internal/models"
	"revline/internal/repository"
	"revline/internal/service"

	"github.com/spf13/cobra"
)

// ErrDriftFound is returned by reconcile --fail-on-drift when counters disagree with their rows.
var ErrDriftFound = errors.New("counter drift found")

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun, failOnDrift bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute stored counters from follow, like, comment and participant rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := rootOpts.Connect(ctx, rootOpts.cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer closeRuntime(ctx, rt)

			reconciler := service.NewReconciler(repository.NewReconcileRepository(rt.DB),
				cache.New(rt.Redis), service.SystemClock)
			report, err := reconciler.Sweep(ctx, dryRun)
			if err != nil {
				return err
			}

			if err := render(cmd, rootOpts, report, func(w io.Writer) error {
				return writeReconcileText(w, report)
			}); err != nil {
				return err
			}
			if failOnDrift && report.TotalDrift() > 0 {
				return fmt.Errorf("%w: %d rows", ErrDriftFound, report.TotalDrift())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report drift without repairing it")
	cmd.Flags().BoolVar(&failOnDrift, "fail-on-drift", false, "exit non-zero when any drift is found")
	return cmd
}

func writeReconcileText(w io.Writer, report *models.ReconcileReport) error {
	if report.Skipped {
		_, err := fmt.Fprintf(w, "run %s skipped: another sweep holds the lock\n", report.RunID)
		return err
	}
	mode := "repaired"
	if report.DryRun {
		mode = "found"
	}
	if _, err := fmt.Fprintf(w, "run %s %s %d drifted rows in %s\n",
		report.RunID, mode, report.TotalDrift(), report.Duration); err != nil {
		return err
	}
	for _, d := range report.Drift {
		if _, err := fmt.Fprintf(w, "  %+v\n", d); err != nil {
			return err
		}
	}
	return nil
}
