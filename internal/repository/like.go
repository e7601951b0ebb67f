package repository

import (
	"context"

	"revline/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository toggles likes and keeps projects.likes_count in step.
type LikeRepository interface {
	Toggle(ctx context.Context, projectID, userID uint) (models.LikeResult, error)
	IsLiked(ctx context.Context, projectID, userID uint) (bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Toggle flips the (project, user) like inside one transaction. The delete runs
// first and its row count picks the branch, so concurrent toggles by the same
// user serialize on the unique index instead of double counting.
func (r *likeRepository) Toggle(ctx context.Context, projectID, userID uint) (models.LikeResult, error) {
	var result models.LikeResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id").First(&project, projectID).Error; err != nil {
			return err
		}

		del := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&models.Like{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			result.State = models.LikeStateUnliked
			if err := decrementGuarded(tx, &models.Project{}, projectID, "likes_count", models.CounterProjectLikes); err != nil {
				return err
			}
		} else {
			result.State = models.LikeStateLiked
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Like{ProjectID: projectID, UserID: userID})
			if ins.Error != nil {
				return ins.Error
			}
			if ins.RowsAffected > 0 {
				if err := increment(tx, &models.Project{}, projectID, "likes_count"); err != nil {
					return err
				}
			}
		}

		if err := tx.Select("id", "likes_count").First(&project, projectID).Error; err != nil {
			return err
		}
		result.LikesCount = project.LikesCount
		return nil
	})
	if err != nil {
		return models.LikeResult{}, mapError(err, "Project", projectID)
	}
	return result, nil
}

func (r *likeRepository) IsLiked(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
