package repository

import (
	"context"

	"revline/internal/models"
	"revline/internal/observability"

	"gorm.io/gorm"
)

// SearchRepository runs case-insensitive substring matches per content type.
// Queries are matched literally: LIKE wildcards in the input are escaped.
type SearchRepository interface {
	SearchUsers(ctx context.Context, query string, limit int) ([]models.UserSearchHit, error)
	SearchEvents(ctx context.Context, query, today string, limit int) ([]*models.Event, error)
	SearchProjects(ctx context.Context, query string, limit int) ([]*models.Project, error)
}

type searchRepository struct {
	db *gorm.DB
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) SearchUsers(ctx context.Context, query string, limit int) ([]models.UserSearchHit, error) {
	defer observability.TrackQuery("search", "users")()

	where, args := likeAny(containsPattern(query), "username", "bio")
	var rows []userStatsRow
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select(userStatsSelect).
		Where(where, args...).
		Order("users.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	hits := make([]models.UserSearchHit, len(rows))
	for i := range rows {
		u := rows[i].User
		stats := rows[i].stats()
		hits[i] = models.UserSearchHit{User: &u, ProjectCount: stats.ProjectCount, Stats: stats}
	}
	return hits, nil
}

func (r *searchRepository) SearchEvents(ctx context.Context, query, today string, limit int) ([]*models.Event, error) {
	defer observability.TrackQuery("search", "events")()

	where, args := likeAny(containsPattern(query), "title", "description", "location", "event_type")
	events := []*models.Event{}
	err := r.db.WithContext(ctx).
		Select(participantsCountSelect).
		Preload("Owner").
		Where("event_date >= ?", today).
		Where(where, args...).
		Order("event_date ASC, event_time ASC, id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, e := range events {
		fillOwner(e)
	}
	return events, nil
}

func (r *searchRepository) SearchProjects(ctx context.Context, query string, limit int) ([]*models.Project, error) {
	defer observability.TrackQuery("search", "projects")()

	pattern := containsPattern(query)
	where, args := likeAny(pattern, "title", "description", "car_make", "car_model")
	where += " OR " + modificationMatch(r.db.Dialector.Name())
	args = append(args, pattern)
	projects := []*models.Project{}
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where(where, args...).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, p := range projects {
		if p.Owner.ID != 0 {
			summary := p.Owner.Summary()
			p.User = &summary
		}
	}
	return projects, nil
}

// modificationMatch tests each element of the modifications array rather than
// its serialized form, so JSON quoting never takes part in the match.
func modificationMatch(dialect string) string {
	if dialect == "sqlite" {
		return `EXISTS (SELECT 1 FROM json_each(CAST(projects.modifications AS TEXT)) m
			WHERE LOWER(m.value) LIKE ? ESCAPE '` + likeEscape + `')`
	}
	return `EXISTS (SELECT 1 FROM jsonb_array_elements_text(
			CASE WHEN jsonb_typeof(projects.modifications) = 'array' THEN projects.modifications ELSE '[]'::jsonb END
		) AS m(value) WHERE LOWER(m.value) LIKE ? ESCAPE '` + likeEscape + `')`
}
