package service

import (
	"context"

	"revline/internal/models"
	"revline/internal/observability"
	"revline/internal/repository"
	"revline/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const maxCommentsListed = 100

// EngagementService handles likes and comments together with the project
// counters they drive.
type EngagementService struct {
	projectRepo repository.ProjectRepository
	likeRepo    repository.LikeRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
}

func NewEngagementService(
	projectRepo repository.ProjectRepository,
	likeRepo repository.LikeRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
) *EngagementService {
	return &EngagementService{
		projectRepo: projectRepo,
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
	}
}

// ToggleLike likes the project if the actor has not, and unlikes it otherwise.
func (s *EngagementService) ToggleLike(ctx context.Context, actorID, projectID uint) (result models.LikeResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "EngagementService", "ToggleLike",
		attribute.Int64("actor.id", int64(actorID)),
		attribute.Int64("project.id", int64(projectID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if actorID == 0 {
		return models.LikeResult{}, models.NewUnauthenticatedError("Authentication required")
	}

	result, err = s.likeRepo.Toggle(ctx, projectID, actorID)
	if err != nil {
		return models.LikeResult{}, err
	}
	observability.LikeToggles.WithLabelValues(string(result.State)).Inc()
	return result, nil
}

// AddComment stores a comment with the author's current username and bumps
// the project's comment count atomically with it.
func (s *EngagementService) AddComment(ctx context.Context, actorID, projectID uint, content string) (comment *models.Comment, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "EngagementService", "AddComment",
		attribute.Int64("actor.id", int64(actorID)),
		attribute.Int64("project.id", int64(projectID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if actorID == 0 {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	exists, err := s.projectRepo.Exists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Project", projectID)
	}
	trimmed, err := validation.ValidateCommentContent(content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	author, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	comment = &models.Comment{
		ProjectID: projectID,
		UserID:    actorID,
		Username:  author.Username,
		Content:   trimmed,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsCreated.Inc()
	return comment, nil
}

// ListComments returns the project's comments oldest first.
func (s *EngagementService) ListComments(ctx context.Context, projectID uint) ([]*models.Comment, error) {
	exists, err := s.projectRepo.Exists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Project", projectID)
	}
	return s.commentRepo.ListByProject(ctx, projectID, maxCommentsListed)
}
