package service

import (
	"context"

	"revline/internal/cache"
	"revline/internal/models"
	"revline/internal/observability"
	"revline/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 100
	maxEdgeListLimit = 100
)

// RelationshipService maintains the follow graph and the feed derived from it.
type RelationshipService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	projectRepo repository.ProjectRepository
	cache       *cache.Cache
}

func NewRelationshipService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	projectRepo repository.ProjectRepository,
	c *cache.Cache,
) *RelationshipService {
	return &RelationshipService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		projectRepo: projectRepo,
		cache:       c,
	}
}

// Follow adds the edge actor -> target. Following someone already followed
// succeeds without changing anything; changed reports whether an edge was added.
func (s *RelationshipService) Follow(ctx context.Context, actorID, targetID uint) (changed bool, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "RelationshipService", "Follow",
		attribute.Int64("actor.id", int64(actorID)),
		attribute.Int64("target.id", int64(targetID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if actorID == 0 {
		return false, models.NewUnauthenticatedError("Authentication required")
	}
	if actorID == targetID {
		return false, models.NewConflictError("Cannot follow yourself", models.ErrSelfFollow)
	}
	exists, err := s.userRepo.Exists(ctx, targetID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, models.NewNotFoundError("User", targetID)
	}

	changed, err = s.followRepo.Follow(ctx, actorID, targetID)
	if err != nil {
		return false, err
	}
	observability.RecordFollow("follow", changed)
	if changed {
		s.cache.Invalidate(ctx, cache.ProfileKey(actorID), cache.ProfileKey(targetID))
	}
	return changed, nil
}

// Unfollow removes the edge if present. It is a no-op otherwise.
func (s *RelationshipService) Unfollow(ctx context.Context, actorID, targetID uint) (changed bool, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "RelationshipService", "Unfollow",
		attribute.Int64("actor.id", int64(actorID)),
		attribute.Int64("target.id", int64(targetID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if actorID == 0 {
		return false, models.NewUnauthenticatedError("Authentication required")
	}

	changed, err = s.followRepo.Unfollow(ctx, actorID, targetID)
	if err != nil {
		return false, err
	}
	observability.RecordFollow("unfollow", changed)
	if changed {
		s.cache.Invalidate(ctx, cache.ProfileKey(actorID), cache.ProfileKey(targetID))
	}
	return changed, nil
}

// Feed returns projects by the viewer and everyone they follow, newest first.
// An anonymous viewer (0) gets the global feed.
func (s *RelationshipService) Feed(ctx context.Context, viewerID uint, limit int) ([]*models.Project, error) {
	return s.projectRepo.Feed(ctx, viewerID, clampLimit(limit, defaultFeedLimit, maxFeedLimit))
}

func (s *RelationshipService) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.followRepo.IsFollowing(ctx, followerID, followeeID)
}

func (s *RelationshipService) FollowedIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followRepo.FollowedIDs(ctx, userID)
}

func (s *RelationshipService) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followRepo.FollowerIDs(ctx, userID)
}

func (s *RelationshipService) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.UserSummary, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	users, err := s.followRepo.ListFollowers(ctx, userID, clampLimit(limit, maxEdgeListLimit, maxEdgeListLimit), offset)
	if err != nil {
		return nil, err
	}
	return toSummaries(users), nil
}

func (s *RelationshipService) Following(ctx context.Context, userID uint, limit, offset int) ([]models.UserSummary, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	users, err := s.followRepo.ListFollowing(ctx, userID, clampLimit(limit, maxEdgeListLimit, maxEdgeListLimit), offset)
	if err != nil {
		return nil, err
	}
	return toSummaries(users), nil
}

func (s *RelationshipService) requireUser(ctx context.Context, userID uint) error {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

func toSummaries(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, len(users))
	for i := range users {
		out[i] = users[i].Summary()
	}
	return out
}
