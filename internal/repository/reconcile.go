package repository

import (
	"context"
	"fmt"

	"revline/internal/models"

	"gorm.io/gorm"
)

// counterSource describes where a denormalized counter lives and which rows it counts.
type counterSource struct {
	table       string
	column      string
	sourceTable string
	foreignKey  string
}

var counterSources = map[models.CounterField]counterSource{
	models.CounterProjectLikes:    {"projects", "likes_count", "likes", "project_id"},
	models.CounterProjectComments: {"projects", "comments_count", "comments", "project_id"},
	models.CounterUserFollowers:   {"users", "followers_count", "follows", "followee_id"},
	models.CounterUserFollowing:   {"users", "following_count", "follows", "follower_id"},
}

func (s counterSource) actual() string {
	return fmt.Sprintf("(SELECT COUNT(*) FROM %s s WHERE s.%s = %s.id)", s.sourceTable, s.foreignKey, s.table)
}

// ReconcileRepository finds and repairs counters that disagree with their source rows.
type ReconcileRepository interface {
	FindDrift(ctx context.Context, field models.CounterField) ([]models.CounterDrift, error)
	Repair(ctx context.Context, field models.CounterField) (int64, error)
}

type reconcileRepository struct {
	db *gorm.DB
}

// NewReconcileRepository creates a new reconcile repository
func NewReconcileRepository(db *gorm.DB) ReconcileRepository {
	return &reconcileRepository{db: db}
}

func lookupSource(field models.CounterField) (counterSource, error) {
	src, ok := counterSources[field]
	if !ok {
		return counterSource{}, models.NewValidationError(fmt.Sprintf("unknown counter field %q", field))
	}
	return src, nil
}

type driftRow struct {
	ID     uint
	Stored int
	Actual int
}

func (r *reconcileRepository) FindDrift(ctx context.Context, field models.CounterField) ([]models.CounterDrift, error) {
	src, err := lookupSource(field)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT t.id AS id, t.%[1]s AS stored, COUNT(s.%[3]s) AS actual "+
			"FROM %[2]s t LEFT JOIN %[4]s s ON s.%[3]s = t.id "+
			"GROUP BY t.id, t.%[1]s "+
			"HAVING t.%[1]s <> COUNT(s.%[3]s) "+
			"ORDER BY t.id",
		src.column, src.table, src.foreignKey, src.sourceTable,
	)

	var rows []driftRow
	if err := r.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	drift := make([]models.CounterDrift, len(rows))
	for i, row := range rows {
		drift[i] = models.CounterDrift{Field: field, ID: row.ID, Stored: row.Stored, Actual: row.Actual}
	}
	return drift, nil
}

// Repair rewrites every drifted counter for field from its source rows in a single statement.
func (r *reconcileRepository) Repair(ctx context.Context, field models.CounterField) (int64, error) {
	src, err := lookupSource(field)
	if err != nil {
		return 0, err
	}

	actual := src.actual()
	stmt := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s <> %s", src.table, src.column, actual, src.column, actual)
	res := r.db.WithContext(ctx).Exec(stmt)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
