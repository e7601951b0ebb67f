package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventType categorizes an event.
type EventType string

const (
	EventTypeCarMeet  EventType = "car_meet"
	EventTypeCarShow  EventType = "car_show"
	EventTypeRace     EventType = "race"
	EventTypeWorkshop EventType = "workshop"
	EventTypeCruise   EventType = "cruise"
	EventTypeTrackDay EventType = "track_day"
)

// EventTypes lists every accepted event type.
var EventTypes = []EventType{
	EventTypeCarMeet,
	EventTypeCarShow,
	EventTypeRace,
	EventTypeWorkshop,
	EventTypeCruise,
	EventTypeTrackDay,
}

// Layouts of the schedule fields. Dates compare correctly as strings.
const (
	EventDateLayout = "2006-01-02"
	EventTimeLayout = "15:04"
)

// Event is a scheduled gathering. A nil MaxParticipants means unbounded.
type Event struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	UserID          uint                        `gorm:"not null;index" json:"user_id"`
	Title           string                      `gorm:"size:200;not null" json:"title"`
	Description     string                      `gorm:"type:text" json:"description"`
	EventDate       string                      `gorm:"size:10;not null;index" json:"event_date"`
	EventTime       string                      `gorm:"size:5;not null" json:"event_time"`
	Location        string                      `gorm:"size:255;not null" json:"location"`
	EventType       EventType                   `gorm:"type:varchar(20);not null" json:"event_type"`
	MaxParticipants *int                        `json:"max_participants"`
	Images          datatypes.JSONSlice[string] `json:"images"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`

	Owner User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	ParticipantsCount int           `gorm:"->;-:migration" json:"participants_count"`
	Participants      []uint        `gorm:"-" json:"participants"`
	UserJoined        bool          `gorm:"-" json:"user_joined"`
	ParticipantsInfo  []UserSummary `gorm:"-" json:"participants_info,omitempty"`
	User              *UserSummary  `gorm:"-" json:"user,omitempty"`
}

// IsOwnedBy reports whether userID owns the event.
func (e *Event) IsOwnedBy(userID uint) bool {
	return e.UserID == userID
}

// IsFull reports whether count participants already fill the capacity.
func (e *Event) IsFull(count int) bool {
	return e.MaxParticipants != nil && count >= *e.MaxParticipants
}

// DaysUntil returns whole calendar days from today until the event date.
// Negative values mean the event is in the past.
func (e *Event) DaysUntil(today time.Time) (int, error) {
	date, err := time.Parse(EventDateLayout, e.EventDate)
	if err != nil {
		return 0, err
	}
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(date.Sub(start).Hours() / 24), nil
}

// EventParticipant is one membership row. The composite key makes joining set-valued.
type EventParticipant struct {
	EventID   uint      `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Event *Event `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	User  *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
