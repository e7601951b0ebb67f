package models

import (
	"time"
)

// Like represents a user's like on a project.
// The combination of ProjectID and UserID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_like_project_user" json:"project_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_project_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// LikeState is the outcome of a toggle.
type LikeState string

const (
	LikeStateLiked   LikeState = "liked"
	LikeStateUnliked LikeState = "unliked"
)

// LikeResult reports the state a toggle left the pair in and the project's count afterwards.
type LikeResult struct {
	State      LikeState `json:"state"`
	LikesCount int       `json:"likes_count"`
}

// Liked is a convenience accessor for the boolean form used by the API.
func (r LikeResult) Liked() bool {
	return r.State == LikeStateLiked
}
