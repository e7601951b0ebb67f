package database

import "revline/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Follow{},
		&models.Project{},
		&models.Like{},
		&models.Comment{},
		&models.Event{},
		&models.EventParticipant{},
	}
}
