package repository

import (
	"context"

	"revline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const participantsCountSelect = "events.*, " +
	"(SELECT COUNT(*) FROM event_participants WHERE event_participants.event_id = events.id) AS participants_count"

// EventRepository defines persistence for events and their participant sets.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	// Join adds userID to the event under a row lock on the event.
	Join(ctx context.Context, eventID, userID uint) error
	// Leave removes userID and reports whether a row was deleted.
	Leave(ctx context.Context, eventID, userID uint) (bool, error)
	Participants(ctx context.Context, eventID uint) ([]models.User, error)
	JoinedEventIDs(ctx context.Context, userID uint, eventIDs []uint) ([]uint, error)
	// ListUpcoming lists events on or after today (YYYY-MM-DD), soonest first.
	ListUpcoming(ctx context.Context, today string, limit int) ([]*models.Event, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]*models.Event, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Omit("Owner").Create(event).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Select(participantsCountSelect).
		Preload("Owner").
		First(&event, id).Error
	if err != nil {
		return nil, mapError(err, "Event", id)
	}
	fillOwner(&event)
	return &event, nil
}

func (r *eventRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Event", id)
	}
	return nil
}

func (r *eventRepository) Join(ctx context.Context, eventID, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, eventID).Error; err != nil {
			return err
		}

		var joined int64
		if err := tx.Model(&models.EventParticipant{}).
			Where("event_id = ? AND user_id = ?", eventID, userID).
			Count(&joined).Error; err != nil {
			return err
		}
		if joined > 0 {
			return models.NewConflictError("Already joined this event", models.ErrAlreadyJoined)
		}

		if event.MaxParticipants != nil {
			var count int64
			if err := tx.Model(&models.EventParticipant{}).Where("event_id = ?", eventID).Count(&count).Error; err != nil {
				return err
			}
			if event.IsFull(int(count)) {
				return models.NewConflictError("Event is full", models.ErrEventFull)
			}
		}

		return tx.Omit(clause.Associations).Create(&models.EventParticipant{EventID: eventID, UserID: userID}).Error
	})
	if err != nil && isUniqueConstraintError(err) {
		// Only reachable if the lock was bypassed; the key still keeps membership set-valued.
		return models.NewConflictError("Already joined this event", models.ErrAlreadyJoined)
	}
	return mapError(err, "Event", eventID)
}

// Leave removes the membership row if there is one. A missing event or an
// absent membership is not an error.
func (r *eventRepository) Leave(ctx context.Context, eventID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&models.EventParticipant{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *eventRepository) Participants(ctx context.Context, eventID uint) ([]models.User, error) {
	users := []models.User{}
	err := r.db.WithContext(ctx).
		Joins("JOIN event_participants ON event_participants.user_id = users.id").
		Where("event_participants.event_id = ?", eventID).
		Order("event_participants.created_at ASC, users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *eventRepository) JoinedEventIDs(ctx context.Context, userID uint, eventIDs []uint) ([]uint, error) {
	if userID == 0 || len(eventIDs) == 0 {
		return nil, nil
	}
	var joined []uint
	err := r.db.WithContext(ctx).
		Model(&models.EventParticipant{}).
		Where("user_id = ? AND event_id IN ?", userID, eventIDs).
		Pluck("event_id", &joined).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return joined, nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, today string, limit int) ([]*models.Event, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("event_date >= ?", today).
			Order("event_date ASC, event_time ASC, id ASC").
			Limit(limit)
	})
}

func (r *eventRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]*models.Event, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID).
			Order("event_date ASC, event_time ASC, id ASC").
			Limit(limit)
	})
}

func (r *eventRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*models.Event, error) {
	events := []*models.Event{}
	err := scope(r.db.WithContext(ctx).Select(participantsCountSelect).Preload("Owner")).Find(&events).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, e := range events {
		fillOwner(e)
	}
	return events, nil
}

func fillOwner(e *models.Event) {
	if e.Owner.ID == 0 {
		return
	}
	summary := e.Owner.Summary()
	e.User = &summary
}
