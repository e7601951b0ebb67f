package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"revline/internal/models"
	"revline/internal/observability"
	"revline/internal/repository"

	"golang.org/x/sync/errgroup"
)

// minSearchQueryLen is the shortest trimmed query that reaches the database.
const minSearchQueryLen = 2

const (
	defaultDiscoverLimit    = 20
	defaultSearchLimit      = 10
	defaultTypedSearchLimit = 20
	maxDiscoverLimit        = 100
)

// DiscoveryService is the read-only ranking and search surface.
// Nothing here is cached; every call reflects current store state.
type DiscoveryService struct {
	userRepo    repository.UserRepository
	eventRepo   repository.EventRepository
	projectRepo repository.ProjectRepository
	searchRepo  repository.SearchRepository
	clock       Clock
}

func NewDiscoveryService(
	userRepo repository.UserRepository,
	eventRepo repository.EventRepository,
	projectRepo repository.ProjectRepository,
	searchRepo repository.SearchRepository,
	clock Clock,
) *DiscoveryService {
	return &DiscoveryService{
		userRepo:    userRepo,
		eventRepo:   eventRepo,
		projectRepo: projectRepo,
		searchRepo:  searchRepo,
		clock:       clock,
	}
}

// DiscoverUsers suggests accounts the viewer does not follow yet, most active first.
func (s *DiscoveryService) DiscoverUsers(ctx context.Context, viewerID uint, limit int) ([]models.DiscoveredUser, error) {
	defer observability.TrackDiscovery("users")()

	users, err := s.userRepo.ListDiscoverable(ctx, viewerID, clampLimit(limit, defaultDiscoverLimit, maxDiscoverLimit))
	if err != nil {
		return nil, err
	}
	RankUsers(users)
	return users, nil
}

// DiscoverEvents ranks a window of upcoming events by popularity.
// The window is twice the limit so soon, well-attended events can rise above earlier quiet ones.
func (s *DiscoveryService) DiscoverEvents(ctx context.Context, viewerID uint, limit int) ([]models.RankedEvent, error) {
	defer observability.TrackDiscovery("events")()

	limit = clampLimit(limit, defaultDiscoverLimit, maxDiscoverLimit)
	now := s.clock.now()
	events, err := s.eventRepo.ListUpcoming(ctx, now.Format(models.EventDateLayout), limit*2)
	if err != nil {
		return nil, err
	}
	if err := markJoined(ctx, s.eventRepo, viewerID, events); err != nil {
		return nil, err
	}

	ranked := RankEvents(events, now)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// TrendingProjects orders projects by likes, then comments, then recency.
func (s *DiscoveryService) TrendingProjects(ctx context.Context, viewerID uint, limit int) ([]*models.Project, error) {
	defer observability.TrackDiscovery("projects")()
	return s.projectRepo.Trending(ctx, clampLimit(limit, defaultDiscoverLimit, maxDiscoverLimit), viewerID)
}

// Search matches users, upcoming events and projects independently and concurrently.
// Queries shorter than two characters return empty sets without touching the database.
// Events carry user_joined for a non-zero viewerID.
func (s *DiscoveryService) Search(ctx context.Context, viewerID uint, query string, limit int) (*models.SearchResults, error) {
	defer observability.TrackDiscovery("search")()

	query, ok := searchable(query)
	results := models.EmptySearchResults(query)
	if !ok {
		return results, nil
	}
	limit = clampLimit(limit, defaultSearchLimit, maxDiscoverLimit)
	today := s.clock.today()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := s.searchRepo.SearchUsers(gctx, query, limit)
		if err == nil {
			results.Users = users
		}
		return err
	})
	g.Go(func() error {
		events, err := s.searchRepo.SearchEvents(gctx, query, today, limit)
		if err != nil {
			return err
		}
		results.Events = events
		return markJoined(gctx, s.eventRepo, viewerID, events)
	})
	g.Go(func() error {
		projects, err := s.searchRepo.SearchProjects(gctx, query, limit)
		if err == nil {
			results.Projects = projects
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SearchUsers matches username or bio and reports each user's activity stats.
func (s *DiscoveryService) SearchUsers(ctx context.Context, query string, limit int) ([]models.UserSearchHit, error) {
	defer observability.TrackDiscovery("search_users")()

	query, ok := searchable(query)
	if !ok {
		return []models.UserSearchHit{}, nil
	}
	return s.searchRepo.SearchUsers(ctx, query, clampLimit(limit, defaultTypedSearchLimit, maxDiscoverLimit))
}

func (s *DiscoveryService) SearchEvents(ctx context.Context, viewerID uint, query string, limit int) ([]*models.Event, error) {
	defer observability.TrackDiscovery("search_events")()

	query, ok := searchable(query)
	if !ok {
		return []*models.Event{}, nil
	}
	events, err := s.searchRepo.SearchEvents(ctx, query, s.clock.today(), clampLimit(limit, defaultTypedSearchLimit, maxDiscoverLimit))
	if err != nil {
		return nil, err
	}
	if err := markJoined(ctx, s.eventRepo, viewerID, events); err != nil {
		return nil, err
	}
	return events, nil
}

func searchable(query string) (string, bool) {
	query = strings.TrimSpace(query)
	return query, utf8.RuneCountInString(query) >= minSearchQueryLen
}
