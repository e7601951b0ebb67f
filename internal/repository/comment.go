package repository

import (
	"context"

	"revline/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	// Create inserts the comment and bumps the project's comment count in one transaction.
	Create(ctx context.Context, comment *models.Comment) error
	ListByProject(ctx context.Context, projectID uint, limit int) ([]*models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id").First(&project, comment.ProjectID).Error; err != nil {
			return err
		}
		if err := tx.Omit("Project", "Author").Create(comment).Error; err != nil {
			return err
		}
		return increment(tx, &models.Project{}, comment.ProjectID, "comments_count")
	})
	return mapError(err, "Project", comment.ProjectID)
}

func (r *commentRepository) ListByProject(ctx context.Context, projectID uint, limit int) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}
