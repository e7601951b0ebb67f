package server

import (
	"revline/internal/models"
	"revline/internal/service"

	"github.com/gofiber/fiber/v2"
)

type eventRequest struct {
	Title           *string           `json:"title"`
	Description     *string           `json:"description"`
	EventDate       *string           `json:"event_date"`
	EventTime       *string           `json:"event_time"`
	Location        *string           `json:"location"`
	EventType       *models.EventType `json:"event_type"`
	MaxParticipants *int              `json:"max_participants"`
	Images          *[]string         `json:"images"`
}

// GetUpcomingEvents handles GET /api/events
// @Summary Upcoming events
// @Description Events dated today or later, soonest first
// @Tags events
// @Produce json
// @Success 200 {array} models.Event
// @Router /events [get]
func (s *Server) GetUpcomingEvents(c *fiber.Ctx) error {
	events, err := s.events.ListUpcoming(c.UserContext(), s.optionalUserID(c), c.QueryInt("limit", 0))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(events)
}

// CreateEvent handles POST /api/events
// @Summary Create an event
// @Tags events
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body eventRequest true "Event"
// @Success 201 {object} models.Event
// @Failure 400 {object} models.ErrorResponse
// @Router /events [post]
func (s *Server) CreateEvent(c *fiber.Ctx) error {
	var req eventRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	event, err := s.events.Create(c.UserContext(), service.CreateEventInput{
		UserID:          currentUserID(c),
		Title:           deref(req.Title),
		Description:     deref(req.Description),
		EventDate:       deref(req.EventDate),
		EventTime:       deref(req.EventTime),
		Location:        deref(req.Location),
		EventType:       deref(req.EventType),
		MaxParticipants: req.MaxParticipants,
		Images:          deref(req.Images),
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// GetEvent handles GET /api/events/:id
// @Summary Event detail
// @Description Includes participants and whether the caller has joined
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} models.Event
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [get]
func (s *Server) GetEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	event, err := s.events.Get(c.UserContext(), s.optionalUserID(c), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(event)
}

// UpdateEvent handles PUT /api/events/:id
// @Summary Update an event
// @Description Owner only
// @Tags events
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param request body eventRequest true "Fields to change"
// @Success 200 {object} models.Event
// @Failure 403 {object} models.ErrorResponse
// @Router /events/{id} [put]
func (s *Server) UpdateEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req eventRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	event, err := s.events.Update(c.UserContext(), service.UpdateEventInput{
		UserID:          currentUserID(c),
		EventID:         id,
		Title:           req.Title,
		Description:     req.Description,
		EventDate:       req.EventDate,
		EventTime:       req.EventTime,
		Location:        req.Location,
		EventType:       req.EventType,
		MaxParticipants: req.MaxParticipants,
		Images:          req.Images,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(event)
}

// JoinEvent handles POST /api/events/:id/join
// @Summary Join an event
// @Tags events
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse "Already joined or full"
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id}/join [post]
func (s *Server) JoinEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actorID := currentUserID(c)

	if err := s.events.Join(c.UserContext(), actorID, id); err != nil {
		return models.RespondWithAppError(c, err)
	}

	if s.notifier != nil {
		if event, err := s.events.Get(c.UserContext(), actorID, id); err == nil {
			s.notifyEventJoined(c.UserContext(), actorID, event)
		}
	}

	return c.JSON(fiber.Map{"message": "Successfully joined event"})
}

// LeaveEvent handles DELETE /api/events/:id/join
// @Summary Leave an event
// @Tags events
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} object{message=string}
// @Router /events/{id}/join [delete]
func (s *Server) LeaveEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.events.Leave(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully left event"})
}
