package models

import (
	"time"
)

// Comment is an immutable remark on a project.
// Username is a snapshot of the author's name when the comment was written
// and is intentionally not updated when the author renames.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"project_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Username  string    `gorm:"size:30;not null" json:"username"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`

	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Author  User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
