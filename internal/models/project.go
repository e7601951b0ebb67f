package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a car build shared by its owner.
//
// LikesCount and CommentsCount are denormalized from the likes and comments
// tables and are only written by the engagement repositories and the
// reconciliation sweep.
type Project struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	UserID        uint                        `gorm:"not null;index" json:"user_id"`
	Title         string                      `gorm:"size:200;not null" json:"title"`
	CarMake       string                      `gorm:"size:100;not null" json:"car_make"`
	CarModel      string                      `gorm:"size:100;not null" json:"car_model"`
	CarYear       int                         `gorm:"not null" json:"car_year"`
	Description   string                      `gorm:"type:text" json:"description"`
	Modifications datatypes.JSONSlice[string] `json:"modifications"`
	Images        datatypes.JSONSlice[string] `json:"images"`
	PartsList     datatypes.JSONSlice[string] `json:"parts_list"`
	BuildCost     *float64                    `json:"build_cost"`
	LikesCount    int                         `gorm:"not null;default:0;check:chk_projects_likes_count,likes_count >= 0" json:"likes_count"`
	CommentsCount int                         `gorm:"not null;default:0;check:chk_projects_comments_count,comments_count >= 0" json:"comments_count"`
	CreatedAt     time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`

	Owner User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	// Liked is filled per viewer by the repository.
	Liked bool         `gorm:"-" json:"liked"`
	User  *UserSummary `gorm:"-" json:"user,omitempty"`
}

// IsOwnedBy reports whether userID owns the project.
func (p *Project) IsOwnedBy(userID uint) bool {
	return p.UserID == userID
}
