package service

import (
	"context"
	"errors"
	"time"

	"revline/internal/cache"
	"revline/internal/middleware"
	"revline/internal/models"
	"revline/internal/observability"
	"revline/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// reconcileLockTTL bounds how long a crashed replica can block other sweeps.
const reconcileLockTTL = 5 * time.Minute

// Reconciler recomputes denormalized counters from their source rows.
type Reconciler struct {
	repo  repository.ReconcileRepository
	cache *cache.Cache
	clock Clock
}

// NewReconciler builds a Reconciler. With a disabled cache the sweep runs unlocked.
func NewReconciler(repo repository.ReconcileRepository, c *cache.Cache, clock Clock) *Reconciler {
	return &Reconciler{repo: repo, cache: c, clock: clock}
}

// Sweep checks every counter field and repairs drifted rows unless dryRun is set.
// When another replica holds the sweep lock the report comes back with Skipped set.
func (r *Reconciler) Sweep(ctx context.Context, dryRun bool) (report *models.ReconcileReport, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "Reconciler", "Sweep",
		attribute.Bool("reconcile.dry_run", dryRun),
	)
	defer func() { observability.EndSpan(span, err) }()

	report = &models.ReconcileReport{
		RunID:     uuid.NewString(),
		StartedAt: r.clock.now(),
		DryRun:    dryRun,
		Fields:    make([]models.FieldReport, 0, len(models.CounterFields)),
		Drift:     []models.CounterDrift{},
	}
	span.SetAttributes(attribute.String("reconcile.run_id", report.RunID))

	if r.cache.Enabled() {
		lock, lockErr := cache.AcquireLock(ctx, r.cache.Client(), cache.ReconcileLockKey, reconcileLockTTL)
		if errors.Is(lockErr, cache.ErrLockHeld) {
			report.Skipped = true
			observability.ReconcileRuns.WithLabelValues("skipped").Inc()
			middleware.Logger.InfoContext(ctx, "reconcile sweep skipped, lock held elsewhere", "run_id", report.RunID)
			return report, nil
		}
		if lockErr != nil {
			observability.ReconcileRuns.WithLabelValues("error").Inc()
			return nil, lockErr
		}
		defer func() {
			if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
				middleware.Logger.WarnContext(ctx, "failed to release reconcile lock", "error", releaseErr)
			}
		}()
	}

	start := time.Now()
	for _, field := range models.CounterFields {
		fieldReport, drift, sweepErr := r.sweepField(ctx, field, dryRun)
		if sweepErr != nil {
			observability.ReconcileRuns.WithLabelValues("error").Inc()
			return nil, sweepErr
		}
		report.Fields = append(report.Fields, fieldReport)
		report.Drift = append(report.Drift, drift...)
	}
	report.Duration = time.Since(start)

	observability.ReconcileDuration.Observe(report.Duration.Seconds())
	observability.ReconcileRuns.WithLabelValues("ok").Inc()
	middleware.Logger.InfoContext(ctx, "reconcile sweep finished",
		"run_id", report.RunID,
		"dry_run", dryRun,
		"drift", report.TotalDrift(),
		"duration", report.Duration,
	)
	return report, nil
}

func (r *Reconciler) sweepField(ctx context.Context, field models.CounterField, dryRun bool) (models.FieldReport, []models.CounterDrift, error) {
	fieldReport := models.FieldReport{Field: field}

	drift, err := r.repo.FindDrift(ctx, field)
	if err != nil {
		return fieldReport, nil, err
	}
	fieldReport.Drifted = len(drift)
	if len(drift) == 0 {
		return fieldReport, drift, nil
	}

	observability.RecordCounterDrift(string(field), len(drift))
	for _, d := range drift {
		middleware.Logger.WarnContext(ctx, "counter drift found",
			"field", string(field),
			"id", d.ID,
			"stored", d.Stored,
			"actual", d.Actual,
		)
	}
	if dryRun {
		return fieldReport, drift, nil
	}

	repaired, err := r.repo.Repair(ctx, field)
	if err != nil {
		return fieldReport, nil, err
	}
	fieldReport.Repaired = repaired

	// Cached profiles carry follow counters.
	if field == models.CounterUserFollowers || field == models.CounterUserFollowing {
		keys := make([]string, len(drift))
		for i, d := range drift {
			keys[i] = cache.ProfileKey(d.ID)
		}
		r.cache.Invalidate(ctx, keys...)
	}
	return fieldReport, drift, nil
}

// Run sweeps every interval until ctx is done. Errors are logged and the loop continues.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := observability.NewAsyncLogger(middleware.Logger, "reconcile_sweep")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			started := time.Now()
			log.Start(ctx, "interval", interval)
			report, err := r.Sweep(ctx, false)
			if err != nil {
				log.Fail(ctx, err)
				continue
			}
			log.Done(ctx, time.Since(started), "run_id", report.RunID,
				"drift", report.TotalDrift(), "skipped", report.Skipped)
		}
	}
}
