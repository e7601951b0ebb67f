package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"revline/internal/middleware"
	"revline/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultPassword = "password123"

// Options configure the seeder.
type Options struct {
	// Seed makes generation deterministic; zero uses the current time.
	Seed int64
	// FastHash hashes the shared password at bcrypt.MinCost.
	FastHash bool
	// DryRun generates rows without writing them.
	DryRun bool
	// Clean deletes existing domain rows first.
	Clean     bool
	BatchSize int
	Now       time.Time
}

// Summary counts the rows a run produced.
type Summary struct {
	Users        int `json:"users"`
	Follows      int `json:"follows"`
	Projects     int `json:"projects"`
	Likes        int `json:"likes"`
	Comments     int `json:"comments"`
	Events       int `json:"events"`
	Participants int `json:"participants"`
}

// Seeder writes a generated social graph. Stored counters are computed from
// the same edges that are inserted, so a fresh dataset reconciles with no drift.
type Seeder struct {
	db   *gorm.DB
	opts Options
}

// NewSeeder creates a Seeder over db. db may be nil for dry runs.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Seed == 0 {
		opts.Seed = opts.Now.UnixNano()
	}
	return &Seeder{db: db, opts: opts}
}

// Run generates and stores a dataset sized by preset inside one transaction.
func (s *Seeder) Run(ctx context.Context, preset Preset) (*Summary, error) {
	if err := preset.Validate(); err != nil {
		return nil, err
	}
	log := middleware.Logger.With(slog.String("preset", preset.Name), slog.Bool("dry_run", s.opts.DryRun))
	log.InfoContext(ctx, "Seeding database", slog.Int("users", preset.Users))

	cost := bcrypt.DefaultCost
	if s.opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	g := s.generate(preset, string(hash))
	summary := g.summary()

	if s.opts.DryRun {
		log.InfoContext(ctx, "Dry run complete", slog.Any("summary", summary))
		return summary, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.opts.Clean {
			if err := Clean(tx); err != nil {
				return err
			}
		}
		return g.write(tx, s.opts.BatchSize)
	})
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", preset.Name, err)
	}

	log.InfoContext(ctx, "Seeding complete", slog.Any("summary", summary))
	return summary, nil
}

// Clean deletes every domain row, children first.
func Clean(tx *gorm.DB) error {
	all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.EventParticipant{},
		&models.Event{},
		&models.Comment{},
		&models.Like{},
		&models.Project{},
		&models.Follow{},
		&models.User{},
	} {
		if err := all.Delete(model).Error; err != nil {
			return fmt.Errorf("clean %T: %w", model, err)
		}
	}
	return nil
}

// graph holds generated rows by index; edges refer to positions in the
// users, projects and events slices until IDs are assigned on insert.
type graph struct {
	users        []*models.User
	follows      [][2]int
	projects     []*models.Project
	projectOwner []int
	likes        [][2]int // project, user
	comments     []commentEdge
	events       []*models.Event
	eventOwner   []int
	participants [][2]int // event, user
}

type commentEdge struct {
	project int
	author  int
	row     *models.Comment
}

func (s *Seeder) generate(preset Preset, passwordHash string) *graph {
	f := NewFactory(s.opts.Seed, s.opts.Now)
	g := &graph{}

	for i := 0; i < preset.Users; i++ {
		g.users = append(g.users, f.BuildUser(i+1, passwordHash))
	}

	for a := range g.users {
		for b := range g.users {
			if a == b || !f.Chance(preset.FollowProbability) {
				continue
			}
			g.follows = append(g.follows, [2]int{a, b})
			g.users[a].FollowingCount++
			g.users[b].FollowersCount++
		}
	}

	for owner, u := range g.users {
		for range preset.ProjectsPerUser {
			g.projects = append(g.projects, f.BuildProject(u, preset.MaxDays))
			g.projectOwner = append(g.projectOwner, owner)
		}
	}

	for p, project := range g.projects {
		for u := range g.users {
			if f.Chance(preset.LikeProbability) {
				g.likes = append(g.likes, [2]int{p, u})
				project.LikesCount++
			}
		}
		if len(g.users) == 0 {
			continue
		}
		for range f.Intn(preset.MaxCommentsPerProject + 1) {
			author := f.Intn(len(g.users))
			g.comments = append(g.comments, commentEdge{
				project: p,
				author:  author,
				row:     f.BuildComment(g.users[author], project),
			})
			project.CommentsCount++
		}
	}

	if len(g.users) > 0 {
		for range preset.Events {
			owner := f.Intn(len(g.users))
			g.events = append(g.events, f.BuildEvent(g.users[owner]))
			g.eventOwner = append(g.eventOwner, owner)
		}
	}

	for e, event := range g.events {
		joined := 0
		for u := range g.users {
			if event.MaxParticipants != nil && joined >= *event.MaxParticipants {
				break
			}
			if f.Chance(preset.JoinProbability) {
				g.participants = append(g.participants, [2]int{e, u})
				joined++
			}
		}
	}

	return g
}

func (g *graph) write(tx *gorm.DB, batch int) error {
	if len(g.users) > 0 {
		if err := tx.CreateInBatches(g.users, batch).Error; err != nil {
			return fmt.Errorf("insert users: %w", err)
		}
	}

	follows := make([]models.Follow, len(g.follows))
	for i, edge := range g.follows {
		follows[i] = models.Follow{FollowerID: g.users[edge[0]].ID, FolloweeID: g.users[edge[1]].ID}
	}
	if len(follows) > 0 {
		if err := tx.CreateInBatches(follows, batch).Error; err != nil {
			return fmt.Errorf("insert follows: %w", err)
		}
	}

	for i, p := range g.projects {
		p.UserID = g.users[g.projectOwner[i]].ID
	}
	if len(g.projects) > 0 {
		if err := tx.CreateInBatches(g.projects, batch).Error; err != nil {
			return fmt.Errorf("insert projects: %w", err)
		}
	}

	likes := make([]models.Like, len(g.likes))
	for i, edge := range g.likes {
		likes[i] = models.Like{ProjectID: g.projects[edge[0]].ID, UserID: g.users[edge[1]].ID}
	}
	if len(likes) > 0 {
		if err := tx.CreateInBatches(likes, batch).Error; err != nil {
			return fmt.Errorf("insert likes: %w", err)
		}
	}

	comments := make([]*models.Comment, len(g.comments))
	for i, c := range g.comments {
		c.row.ProjectID = g.projects[c.project].ID
		c.row.UserID = g.users[c.author].ID
		comments[i] = c.row
	}
	if len(comments) > 0 {
		if err := tx.CreateInBatches(comments, batch).Error; err != nil {
			return fmt.Errorf("insert comments: %w", err)
		}
	}

	for i, e := range g.events {
		e.UserID = g.users[g.eventOwner[i]].ID
	}
	if len(g.events) > 0 {
		if err := tx.CreateInBatches(g.events, batch).Error; err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}

	participants := make([]models.EventParticipant, len(g.participants))
	for i, edge := range g.participants {
		participants[i] = models.EventParticipant{EventID: g.events[edge[0]].ID, UserID: g.users[edge[1]].ID}
	}
	if len(participants) > 0 {
		if err := tx.CreateInBatches(participants, batch).Error; err != nil {
			return fmt.Errorf("insert participants: %w", err)
		}
	}
	return nil
}

func (g *graph) summary() *Summary {
	return &Summary{
		Users:        len(g.users),
		Follows:      len(g.follows),
		Projects:     len(g.projects),
		Likes:        len(g.likes),
		Comments:     len(g.comments),
		Events:       len(g.events),
		Participants: len(g.participants),
	}
}
