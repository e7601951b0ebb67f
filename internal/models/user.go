// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered enthusiast.
//
// Relationship lists are not columns: FollowedUsers and Followers are filled
// from the follows edge list by the repository layer when a profile is read.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email          string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	Bio            string    `gorm:"type:text" json:"bio"`
	ProfileImage   string    `json:"profile_image"`
	FollowersCount int       `gorm:"not null;default:0;check:chk_users_followers_count,followers_count >= 0" json:"followers_count"`
	FollowingCount int       `gorm:"not null;default:0;check:chk_users_following_count,following_count >= 0" json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	FollowedUsers []uint `gorm:"-" json:"followed_users"`
	Followers     []uint `gorm:"-" json:"followers"`
}

// UserSummary is the compact author block embedded in projects, comments and events.
type UserSummary struct {
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
}

// Summary returns the compact representation of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
	}
}

// IsFollowing reports whether u follows userID according to the loaded edge list.
func (u *User) IsFollowing(userID uint) bool {
	for _, id := range u.FollowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
