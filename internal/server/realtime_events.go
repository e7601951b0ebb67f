package server

import (
	"context"

	"revline/internal/featureflags"
	"revline/internal/middleware"
	"revline/internal/models"
	"revline/internal/notifications"
)

// publishUserEvent pushes an event to recipientID unless the actor is the
// recipient or realtime delivery is off for them. Delivery is best-effort and
// never fails the request that triggered it.
func (s *Server) publishUserEvent(ctx context.Context, actorID, recipientID uint, eventType string, payload map[string]any) {
	if s.notifier == nil || recipientID == 0 || recipientID == actorID {
		return
	}
	if s.featureFlags != nil && !s.featureFlags.Enabled(featureflags.RealtimeEvents, recipientID) {
		return
	}

	// Publishing outlives the request deadline.
	ctx = context.WithoutCancel(ctx)
	if err := s.notifier.Publish(ctx, recipientID, eventType, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish realtime event",
			"event_type", eventType, "recipient_id", recipientID, "error", err)
	}
}

func (s *Server) notifyFollowed(ctx context.Context, actorID uint, actorName string, targetID uint) {
	s.publishUserEvent(ctx, actorID, targetID, notifications.EventUserFollowed, map[string]any{
		"user_id":  actorID,
		"username": actorName,
	})
}

func (s *Server) notifyProjectLiked(ctx context.Context, actorID, projectID uint, result models.LikeResult) {
	if !result.Liked() || s.notifier == nil {
		return
	}
	project, err := s.projects.Get(ctx, 0, projectID)
	if err != nil {
		return
	}
	s.publishUserEvent(ctx, actorID, project.UserID, notifications.EventProjectLiked, map[string]any{
		"project_id":  projectID,
		"user_id":     actorID,
		"likes_count": result.LikesCount,
	})
}

func (s *Server) notifyCommentCreated(ctx context.Context, comment *models.Comment) {
	if s.notifier == nil {
		return
	}
	project, err := s.projects.Get(ctx, 0, comment.ProjectID)
	if err != nil {
		return
	}
	s.publishUserEvent(ctx, comment.UserID, project.UserID, notifications.EventCommentCreated, map[string]any{
		"project_id": comment.ProjectID,
		"comment":    comment,
	})
}

func (s *Server) notifyEventJoined(ctx context.Context, actorID uint, event *models.Event) {
	s.publishUserEvent(ctx, actorID, event.UserID, notifications.EventEventJoined, map[string]any{
		"event_id":           event.ID,
		"user_id":            actorID,
		"participants_count": event.ParticipantsCount,
	})
}
