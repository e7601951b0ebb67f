package cli

import (
	"fmt"
	"io"

	"revline/internal/bootstrap"
	"revline/internal/seed"

	"github.com/spf13/cobra"
)

type seedOptions struct {
	preset    string
	seed      int64
	clean     bool
	dryRun    bool
	fastHash  bool
	batchSize int
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	so := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate users, follows, projects, engagement and events",
		Long: `Generate a deterministic social graph sized by a preset.

Stored counters are derived from the generated rows, so a freshly seeded
database reconciles with no drift. Every seeded user has the password
"password123".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, rootOpts, so)
		},
	}

	cmd.Flags().StringVar(&so.preset, "preset", "demo", "dataset preset (tiny|demo|load)")
	cmd.Flags().Int64Var(&so.seed, "seed", 0, "random seed; 0 picks one from the clock")
	cmd.Flags().BoolVar(&so.clean, "clean", false, "delete existing domain rows first")
	cmd.Flags().BoolVar(&so.dryRun, "dry-run", false, "generate without writing")
	cmd.Flags().BoolVar(&so.fastHash, "fast-hash", false, "hash the shared password at minimum bcrypt cost")
	cmd.Flags().IntVar(&so.batchSize, "batch-size", 200, "rows per insert batch")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *RootOptions, so *seedOptions) error {
	preset, err := seed.Lookup(so.preset)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	seedOpts := seed.Options{
		Seed:      so.seed,
		FastHash:  so.fastHash,
		DryRun:    so.dryRun,
		Clean:     so.clean,
		BatchSize: so.batchSize,
	}

	var seeder *seed.Seeder
	if so.dryRun {
		seeder = seed.NewSeeder(nil, seedOpts)
	} else {
		rt, err := opts.Connect(ctx, opts.cfg, bootstrap.Options{ApplySchema: true})
		if err != nil {
			return err
		}
		defer closeRuntime(ctx, rt)
		seeder = seed.NewSeeder(rt.DB, seedOpts)
	}

	summary, err := seeder.Run(ctx, preset)
	if err != nil {
		return err
	}

	return render(cmd, opts, summary, func(w io.Writer) error {
		verb := "seeded"
		if so.dryRun {
			verb = "would seed"
		}
		_, err := fmt.Fprintf(w, "%s preset %s: %d users, %d follows, %d projects, %d likes, %d comments, %d events, %d participants\n",
			verb, preset.Name, summary.Users, summary.Follows, summary.Projects, summary.Likes,
			summary.Comments, summary.Events, summary.Participants)
		return err
	})
}
