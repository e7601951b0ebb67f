package service

import (
	"context"
	"errors"
	"strings"

	"revline/internal/models"
	"revline/internal/observability"
	"revline/internal/repository"
	"revline/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const maxEventsListed = 100

// EventService runs event scheduling and the join/leave state machine.
type EventService struct {
	eventRepo repository.EventRepository
	clock     Clock
}

type CreateEventInput struct {
	UserID          uint
	Title           string
	Description     string
	EventDate       string
	EventTime       string
	Location        string
	EventType       models.EventType
	MaxParticipants *int
	Images          []string
}

// UpdateEventInput carries optional fields; nil means unchanged.
type UpdateEventInput struct {
	UserID          uint
	EventID         uint
	Title           *string
	Description     *string
	EventDate       *string
	EventTime       *string
	Location        *string
	EventType       *models.EventType
	MaxParticipants *int
	Images          *[]string
}

func NewEventService(eventRepo repository.EventRepository, clock Clock) *EventService {
	return &EventService{eventRepo: eventRepo, clock: clock}
}

func (s *EventService) Create(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	if err := validation.ValidateTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEventDate(in.EventDate); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEventTime(in.EventTime); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if strings.TrimSpace(in.Location) == "" {
		return nil, models.NewValidationError("location is required")
	}
	if err := validation.ValidateEventType(in.EventType); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateCapacity(in.MaxParticipants); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateImageURLs(in.Images); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	event := &models.Event{
		UserID:          in.UserID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		EventDate:       in.EventDate,
		EventTime:       in.EventTime,
		Location:        strings.TrimSpace(in.Location),
		EventType:       in.EventType,
		MaxParticipants: in.MaxParticipants,
		Images:          jsonList(in.Images),
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	return s.Get(ctx, in.UserID, event.ID)
}

// Get returns the event with its participant set and whether the viewer is in it.
// Past events remain retrievable here.
func (s *EventService) Get(ctx context.Context, viewerID, eventID uint) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	participants, err := s.eventRepo.Participants(ctx, eventID)
	if err != nil {
		return nil, err
	}

	event.Participants = make([]uint, len(participants))
	event.ParticipantsInfo = make([]models.UserSummary, len(participants))
	for i := range participants {
		event.Participants[i] = participants[i].ID
		event.ParticipantsInfo[i] = participants[i].Summary()
		if participants[i].ID == viewerID && viewerID != 0 {
			event.UserJoined = true
		}
	}
	event.ParticipantsCount = len(participants)
	return event, nil
}

// Update applies the provided fields. Only the owner may edit an event.
func (s *EventService) Update(ctx context.Context, in UpdateEventInput) (*models.Event, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthenticatedError("Authentication required")
	}
	event, err := s.eventRepo.GetByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOwnedBy(in.UserID) {
		return nil, models.NewUnauthorizedError("Not authorized to update this event")
	}

	fields := map[string]any{}
	if in.Title != nil {
		if err := validation.ValidateTitle(*in.Title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.EventDate != nil {
		if err := validation.ValidateEventDate(*in.EventDate); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["event_date"] = *in.EventDate
	}
	if in.EventTime != nil {
		if err := validation.ValidateEventTime(*in.EventTime); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["event_time"] = *in.EventTime
	}
	if in.Location != nil {
		if strings.TrimSpace(*in.Location) == "" {
			return nil, models.NewValidationError("location cannot be empty")
		}
		fields["location"] = strings.TrimSpace(*in.Location)
	}
	if in.EventType != nil {
		if err := validation.ValidateEventType(*in.EventType); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["event_type"] = *in.EventType
	}
	if in.MaxParticipants != nil {
		if err := validation.ValidateCapacity(in.MaxParticipants); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["max_participants"] = *in.MaxParticipants
	}
	if in.Images != nil {
		if err := validation.ValidateImageURLs(*in.Images); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["images"] = jsonList(*in.Images)
	}

	if err := s.eventRepo.Update(ctx, in.EventID, fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, in.UserID, in.EventID)
}

// Join adds the actor to the event. Joining twice or joining a full event is a conflict.
func (s *EventService) Join(ctx context.Context, actorID, eventID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "EventService", "Join",
		attribute.Int64("actor.id", int64(actorID)),
		attribute.Int64("event.id", int64(eventID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if actorID == 0 {
		return models.NewUnauthenticatedError("Authentication required")
	}

	err = s.eventRepo.Join(ctx, eventID, actorID)
	observability.EventJoins.WithLabelValues(joinResult(err)).Inc()
	return err
}

// Leave removes the actor from the event. Leaving an event not joined is a no-op.
func (s *EventService) Leave(ctx context.Context, actorID, eventID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "EventService", "Leave",
		attribute.Int64("actor.id", int64(actorID)),
		attribute.Int64("event.id", int64(eventID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if actorID == 0 {
		return models.NewUnauthenticatedError("Authentication required")
	}
	_, err = s.eventRepo.Leave(ctx, eventID, actorID)
	return err
}

// ListUpcoming returns events dated today or later, soonest first.
func (s *EventService) ListUpcoming(ctx context.Context, viewerID uint, limit int) ([]*models.Event, error) {
	events, err := s.eventRepo.ListUpcoming(ctx, s.clock.today(), clampLimit(limit, maxEventsListed, maxEventsListed))
	if err != nil {
		return nil, err
	}
	return events, markJoined(ctx, s.eventRepo, viewerID, events)
}

// ListByUser returns the events a user owns, including past ones, by date.
func (s *EventService) ListByUser(ctx context.Context, viewerID, userID uint) ([]*models.Event, error) {
	events, err := s.eventRepo.ListByUser(ctx, userID, maxEventsListed)
	if err != nil {
		return nil, err
	}
	return events, markJoined(ctx, s.eventRepo, viewerID, events)
}

func markJoined(ctx context.Context, repo repository.EventRepository, viewerID uint, events []*models.Event) error {
	if viewerID == 0 || len(events) == 0 {
		return nil
	}
	ids := make([]uint, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	joined, err := repo.JoinedEventIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	set := make(map[uint]struct{}, len(joined))
	for _, id := range joined {
		set[id] = struct{}{}
	}
	for _, e := range events {
		_, e.UserJoined = set[e.ID]
	}
	return nil
}

func joinResult(err error) string {
	switch {
	case err == nil:
		return "joined"
	case errors.Is(err, models.ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, models.ErrEventFull):
		return "full"
	case models.IsCode(err, models.CodeNotFound):
		return "not_found"
	default:
		return "error"
	}
}
