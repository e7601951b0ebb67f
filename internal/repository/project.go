package repository

import (
	"context"

	"revline/internal/models"
	"revline/internal/observability"

	"gorm.io/gorm"
)

// ProjectRepository defines the interface for project data operations
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Project, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	ListByUser(ctx context.Context, userID uint, limit int, viewerID uint) ([]*models.Project, error)
	// Feed lists projects by the viewer and the accounts they follow, newest first.
	// A zero viewerID lists every project.
	Feed(ctx context.Context, viewerID uint, limit int) ([]*models.Project, error)
	Trending(ctx context.Context, limit int, viewerID uint) ([]*models.Project, error)
	LikedProjectIDs(ctx context.Context, userID uint, projectIDs []uint) ([]uint, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	// Counters start at zero regardless of input.
	project.LikesCount = 0
	project.CommentsCount = 0
	if err := r.db.WithContext(ctx).Omit("Owner").Create(project).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Owner").First(&project, id).Error; err != nil {
		return nil, mapError(err, "Project", id)
	}
	if err := r.decorate(ctx, []*models.Project{&project}, viewerID); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *projectRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Project", id)
	}
	return nil
}

func (r *projectRepository) ListByUser(ctx context.Context, userID uint, limit int, viewerID uint) ([]*models.Project, error) {
	return r.list(ctx, viewerID, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID).
			Order("created_at DESC, id DESC").
			Limit(limit)
	})
}

func (r *projectRepository) Feed(ctx context.Context, viewerID uint, limit int) ([]*models.Project, error) {
	defer observability.TrackQuery("feed", "projects")()
	return r.list(ctx, viewerID, func(db *gorm.DB) *gorm.DB {
		if viewerID != 0 {
			db = db.Where("user_id = ? OR user_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)", viewerID, viewerID)
		}
		return db.Order("created_at DESC, id DESC").Limit(limit)
	})
}

func (r *projectRepository) Trending(ctx context.Context, limit int, viewerID uint) ([]*models.Project, error) {
	return r.list(ctx, viewerID, func(db *gorm.DB) *gorm.DB {
		return db.Order("likes_count DESC, comments_count DESC, created_at DESC, id DESC").Limit(limit)
	})
}

func (r *projectRepository) LikedProjectIDs(ctx context.Context, userID uint, projectIDs []uint) ([]uint, error) {
	if userID == 0 || len(projectIDs) == 0 {
		return nil, nil
	}
	var liked []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND project_id IN ?", userID, projectIDs).
		Pluck("project_id", &liked).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return liked, nil
}

func (r *projectRepository) list(ctx context.Context, viewerID uint, scope func(*gorm.DB) *gorm.DB) ([]*models.Project, error) {
	projects := []*models.Project{}
	if err := scope(r.db.WithContext(ctx).Preload("Owner")).Find(&projects).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.decorate(ctx, projects, viewerID); err != nil {
		return nil, err
	}
	return projects, nil
}

// decorate fills the author summary and, for a known viewer, the liked flag.
func (r *projectRepository) decorate(ctx context.Context, projects []*models.Project, viewerID uint) error {
	if len(projects) == 0 {
		return nil
	}
	ids := make([]uint, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
		if p.Owner.ID != 0 {
			summary := p.Owner.Summary()
			p.User = &summary
		}
	}

	liked, err := r.LikedProjectIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	set := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		set[id] = struct{}{}
	}
	for _, p := range projects {
		_, p.Liked = set[p.ID]
	}
	return nil
}
