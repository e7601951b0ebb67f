package loadcheck

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"revline/internal/cache"
	"revline/internal/middleware"
	"revline/internal/models"
	"revline/internal/repository"
	"revline/internal/service"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Latencies are recorded in microseconds up to one minute.
const (
	minLatencyMicros = 1
	maxLatencyMicros = int64(time.Minute / time.Microsecond)
	sigFigs          = 3
)

// OpStats summarizes one op kind.
type OpStats struct {
	Op       Op            `json:"op"`
	Count    int64         `json:"count"`
	Rejected int64         `json:"rejected"`
	Errors   int64         `json:"errors"`
	P50      time.Duration `json:"p50"`
	P95      time.Duration `json:"p95"`
	P99      time.Duration `json:"p99"`
	Max      time.Duration `json:"max"`
}

// Report is the outcome of a run.
type Report struct {
	Scenario string        `json:"scenario"`
	Elapsed  time.Duration `json:"elapsed"`
	Ops      []OpStats     `json:"ops"`
	Drift    int           `json:"drift"`
	// FirstErrors keeps a sample of unexpected failures.
	FirstErrors []string `json:"first_errors,omitempty"`
}

// Healthy reports a run with no unexpected errors and no counter drift.
func (r *Report) Healthy() bool {
	if r.Drift != 0 {
		return false
	}
	for _, s := range r.Ops {
		if s.Errors > 0 {
			return false
		}
	}
	return true
}

// Runner issues scenario traffic against existing users, projects and events.
type Runner struct {
	db            *gorm.DB
	relationships *service.RelationshipService
	engagement    *service.EngagementService
	events        *service.EventService
	reconciler    *service.Reconciler
}

// NewRunner wires the services the workload calls. rdb may be nil.
func NewRunner(db *gorm.DB, rdb *redis.Client) *Runner {
	c := cache.New(rdb)
	clock := service.Clock(service.SystemClock)

	userRepo := repository.NewUserRepository(db, c)
	followRepo := repository.NewFollowRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	return &Runner{
		db:            db,
		relationships: service.NewRelationshipService(userRepo, followRepo, projectRepo, c),
		engagement: service.NewEngagementService(projectRepo, repository.NewLikeRepository(db),
			repository.NewCommentRepository(db), userRepo),
		events:     service.NewEventService(repository.NewEventRepository(db), clock),
		reconciler: service.NewReconciler(repository.NewReconcileRepository(db), c, clock),
	}
}

type targets struct {
	users    []uint
	projects []uint
	events   []uint
}

func (r *Runner) loadTargets(ctx context.Context) (*targets, error) {
	t := &targets{}
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Order("id").Pluck("id", &t.users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if err := db.Model(&models.Project{}).Order("id").Pluck("id", &t.projects).Error; err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	if err := db.Model(&models.Event{}).Order("id").Pluck("id", &t.events).Error; err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if len(t.users) < 2 {
		return nil, errors.New("load check needs at least two users; seed the database first")
	}
	return t, nil
}

type workerResult struct {
	hist     map[Op]*hdrhistogram.Histogram
	rejected map[Op]int64
	errors   map[Op]int64
	samples  []string
}

// Run executes sc and finishes with a dry-run reconcile sweep.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	tg, err := r.loadTargets(ctx)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if sc.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, sc.Duration)
		defer cancel()
	}

	middleware.Logger.InfoContext(ctx, "load check starting",
		"scenario", sc.Name, "workers", sc.Workers, "ops_per_worker", sc.OpsPerWorker,
		"users", len(tg.users), "projects", len(tg.projects), "events", len(tg.events))

	pick := newPicker(sc.Mix)
	results := make([]*workerResult, sc.Workers)
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < sc.Workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			results[w] = r.work(runCtx, sc, uint64(w), pick, tg)
		}(w)
	}
	wg.Wait()

	report := &Report{Scenario: sc.Name, Elapsed: time.Since(start)}
	report.Ops, report.FirstErrors = merge(results)

	sweep, err := r.reconciler.Sweep(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("reconcile check: %w", err)
	}
	report.Drift = sweep.TotalDrift()

	middleware.Logger.InfoContext(ctx, "load check finished",
		"scenario", sc.Name, "elapsed", report.Elapsed, "drift", report.Drift, "healthy", report.Healthy())
	return report, nil
}

func (r *Runner) work(ctx context.Context, sc Scenario, worker uint64, pick *picker, tg *targets) *workerResult {
	rng := rand.New(rand.NewPCG(sc.Seed, worker+1))
	res := &workerResult{
		hist:     make(map[Op]*hdrhistogram.Histogram),
		rejected: make(map[Op]int64),
		errors:   make(map[Op]int64),
	}

	for i := 0; i < sc.OpsPerWorker; i++ {
		if ctx.Err() != nil {
			return res
		}
		op := pick.pick(rng.IntN(pick.weight))

		began := time.Now()
		err := r.do(ctx, op, rng, tg)
		elapsed := time.Since(began)

		h, ok := res.hist[op]
		if !ok {
			h = hdrhistogram.New(minLatencyMicros, maxLatencyMicros, sigFigs)
			res.hist[op] = h
		}
		_ = h.RecordValue(max(elapsed.Microseconds(), minLatencyMicros))

		switch {
		case err == nil:
		case expectedRejection(err):
			res.rejected[op]++
		case ctx.Err() != nil:
			return res
		default:
			res.errors[op]++
			if len(res.samples) < 5 {
				res.samples = append(res.samples, fmt.Sprintf("%s: %v", op, err))
			}
		}
	}
	return res
}

func (r *Runner) do(ctx context.Context, op Op, rng *rand.Rand, tg *targets) error {
	actor := tg.users[rng.IntN(len(tg.users))]

	switch op {
	case OpLike:
		if len(tg.projects) == 0 {
			return nil
		}
		_, err := r.engagement.ToggleLike(ctx, actor, tg.projects[rng.IntN(len(tg.projects))])
		return err
	case OpComment:
		if len(tg.projects) == 0 {
			return nil
		}
		_, err := r.engagement.AddComment(ctx, actor, tg.projects[rng.IntN(len(tg.projects))], "load check comment")
		return err
	case OpFollow:
		_, err := r.relationships.Follow(ctx, actor, otherUser(rng, tg.users, actor))
		return err
	case OpUnfollow:
		_, err := r.relationships.Unfollow(ctx, actor, otherUser(rng, tg.users, actor))
		return err
	case OpJoin:
		if len(tg.events) == 0 {
			return nil
		}
		return r.events.Join(ctx, actor, tg.events[rng.IntN(len(tg.events))])
	case OpLeave:
		if len(tg.events) == 0 {
			return nil
		}
		return r.events.Leave(ctx, actor, tg.events[rng.IntN(len(tg.events))])
	case OpFeed:
		_, err := r.relationships.Feed(ctx, actor, 20)
		return err
	}
	return fmt.Errorf("unknown op %q", op)
}

func otherUser(rng *rand.Rand, users []uint, self uint) uint {
	for {
		if id := users[rng.IntN(len(users))]; id != self {
			return id
		}
	}
}

// expectedRejection covers business-rule refusals such as a full event.
func expectedRejection(err error) bool {
	return models.IsCode(err, models.CodeConflict) ||
		models.IsCode(err, models.CodeValidation) ||
		models.IsCode(err, models.CodeNotFound)
}

func merge(results []*workerResult) ([]OpStats, []string) {
	hists := make(map[Op]*hdrhistogram.Histogram)
	rejected := make(map[Op]int64)
	errs := make(map[Op]int64)
	var samples []string

	for _, res := range results {
		if res == nil {
			continue
		}
		for op, h := range res.hist {
			if agg, ok := hists[op]; ok {
				agg.Merge(h)
			} else {
				hists[op] = h
			}
		}
		for op, n := range res.rejected {
			rejected[op] += n
		}
		for op, n := range res.errors {
			errs[op] += n
		}
		for _, s := range res.samples {
			if len(samples) < 10 {
				samples = append(samples, s)
			}
		}
	}

	stats := make([]OpStats, 0, len(hists))
	for op, h := range hists {
		stats = append(stats, OpStats{
			Op:       op,
			Count:    h.TotalCount(),
			Rejected: rejected[op],
			Errors:   errs[op],
			P50:      micros(h.ValueAtQuantile(50)),
			P95:      micros(h.ValueAtQuantile(95)),
			P99:      micros(h.ValueAtQuantile(99)),
			Max:      micros(h.Max()),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Op < stats[j].Op })
	return stats, samples
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
