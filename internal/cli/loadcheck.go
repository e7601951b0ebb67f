package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"revline/internal/bootstrap"
	"revline/internal/loadcheck"

	"github.com/spf13/cobra"
)

// ErrUnhealthy is returned when a load check saw unexpected errors or counter drift.
var ErrUnhealthy = errors.New("load check unhealthy")

// NewLoadCheckCommand creates the loadcheck command.
func NewLoadCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		scenarioPath string
		workers      int
		ops          int
	)

	cmd := &cobra.Command{
		Use:   "loadcheck",
		Short: "Drive concurrent likes, follows, comments and joins, then verify counters",
		Long: `Run a weighted mix of engagement operations against the seeded database
from many workers at once, report per-operation latency percentiles, and
finish with a dry-run reconcile. Any unexpected error or drifted counter
fails the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := loadcheck.DefaultScenario()
			if scenarioPath != "" {
				loaded, err := loadcheck.LoadScenarioFile(scenarioPath)
				if err != nil {
					return err
				}
				sc = loaded
			}
			if workers > 0 {
				sc.Workers = workers
			}
			if ops > 0 {
				sc.OpsPerWorker = ops
			}

			ctx := cmd.Context()
			rt, err := rootOpts.Connect(ctx, rootOpts.cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer closeRuntime(ctx, rt)

			report, err := loadcheck.NewRunner(rt.DB, rt.Redis).Run(ctx, sc)
			if err != nil {
				return err
			}
			if err := render(cmd, rootOpts, report, func(w io.Writer) error {
				return writeLoadReport(w, report)
			}); err != nil {
				return err
			}
			if !report.Healthy() {
				return ErrUnhealthy
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file")
	cmd.Flags().IntVar(&workers, "workers", 0, "override the scenario's worker count")
	cmd.Flags().IntVar(&ops, "ops", 0, "override operations per worker")
	return cmd
}

func writeLoadReport(w io.Writer, r *loadcheck.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "scenario %s finished in %s\n\n", r.Scenario, r.Elapsed)
	fmt.Fprintln(tw, "OP\tCOUNT\tREJECTED\tERRORS\tP50\tP95\tP99\tMAX")
	for _, s := range r.Ops {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			s.Op, s.Count, s.Rejected, s.Errors, s.P50, s.P95, s.P99, s.Max)
	}
	fmt.Fprintf(tw, "\ncounter drift: %d\n", r.Drift)
	for _, e := range r.FirstErrors {
		fmt.Fprintf(tw, "error: %s\n", e)
	}
	return tw.Flush()
}
