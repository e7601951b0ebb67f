package repository

import (
	"context"
	"errors"

	"revline/internal/cache"
	"revline/internal/models"
	"revline/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id uint, fields map[string]any) error
	ListDiscoverable(ctx context.Context, viewerID uint, limit int) ([]models.DiscoveredUser, error)
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewUserRepository returns a new UserRepository implementation.
// c may be nil, in which case profile reads always hit the database.
func NewUserRepository(db *gorm.DB, c *cache.Cache) UserRepository {
	return &userRepository{db: db, cache: c}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := cache.Aside(ctx, r.cache, cache.ProfileKey(id), cache.ProfileTTL, func(ctx context.Context) (*models.User, error) {
		defer observability.TrackQuery("select", "users")()
		var user models.User
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			return nil, mapError(err, "User", id)
		}
		return &user, nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists", nil)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateProfile writes only the given columns. Counters and the password
// hash are never part of a profile update.
func (r *userRepository) UpdateProfile(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError("Username already taken", nil)
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.cache.Invalidate(ctx, cache.ProfileKey(id))
	return nil
}

// userStatsSelect adds the activity counters scanned into userStatsRow.
const userStatsSelect = "users.*, " +
	"(SELECT COUNT(*) FROM projects WHERE projects.user_id = users.id) AS project_count, " +
	"(SELECT COUNT(*) FROM events WHERE events.user_id = users.id) AS event_count, " +
	"(SELECT COUNT(*) FROM follows WHERE follows.followee_id = users.id) AS follower_count"

type userStatsRow struct {
	models.User
	ProjectCount  int
	EventCount    int
	FollowerCount int
}

func (r userStatsRow) stats() models.UserStats {
	return models.UserStats{
		ProjectCount:  r.ProjectCount,
		EventCount:    r.EventCount,
		FollowerCount: r.FollowerCount,
	}
}

// ListDiscoverable returns users the viewer does not follow, with the activity
// stats they are ranked by, highest score first and ties by id.
func (r *userRepository) ListDiscoverable(ctx context.Context, viewerID uint, limit int) ([]models.DiscoveredUser, error) {
	defer observability.TrackQuery("discover", "users")()

	var rows []userStatsRow
	candidates := r.db.
		Model(&models.User{}).
		Select(userStatsSelect).
		Where("users.id <> ?", viewerID).
		Where("users.id NOT IN (SELECT followee_id FROM follows WHERE follower_id = ?)", viewerID)
	err := r.db.WithContext(ctx).
		Table("(?) AS ranked", candidates).
		Order("project_count + event_count + follower_count DESC, id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make([]models.DiscoveredUser, len(rows))
	for i := range rows {
		u := rows[i].User
		stats := rows[i].stats()
		out[i] = models.DiscoveredUser{User: &u, Stats: stats, Score: stats.ActivityScore()}
	}
	return out, nil
}
