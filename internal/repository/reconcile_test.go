package repository

import (
	"context"
	"regexp"
	"testing"

	"revline/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileRepository_RepairSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReconcileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE projects SET likes_count = (SELECT COUNT(*) FROM likes s WHERE s.project_id = projects.id) ` +
			`WHERE likes_count <> (SELECT COUNT(*) FROM likes s WHERE s.project_id = projects.id)`)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.Repair(context.Background(), models.CounterProjectLikes)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileRepository_UnknownField(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := NewReconcileRepository(db)

	_, err := repo.FindDrift(context.Background(), models.CounterField("users.karma"))
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestReconcileRepository_FindAndRepairDrift(t *testing.T) {
	db, fx := setupSQLite(t)
	repo := NewReconcileRepository(db)
	likes := NewLikeRepository(db)
	follows := NewFollowRepository(db)
	ctx := context.Background()

	a := fx.User("a")
	b := fx.User("b")
	clean := fx.Project(a, "Clean")
	drifted := fx.Project(a, "Drifted")

	_, err := likes.Toggle(ctx, clean.ID, b.ID)
	require.NoError(t, err)
	_, err = likes.Toggle(ctx, drifted.ID, b.ID)
	require.NoError(t, err)
	_, err = follows.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)

	for _, field := range models.CounterFields {
		drift, err := repo.FindDrift(ctx, field)
		require.NoError(t, err)
		assert.Empty(t, drift, "no drift expected for %s", field)
	}

	require.NoError(t, db.Model(drifted).UpdateColumn("likes_count", 5).Error)
	require.NoError(t, db.Model(b).UpdateColumn("followers_count", 4).Error)

	drift, err := repo.FindDrift(ctx, models.CounterProjectLikes)
	require.NoError(t, err)
	assert.Equal(t, []models.CounterDrift{
		{Field: models.CounterProjectLikes, ID: drifted.ID, Stored: 5, Actual: 1},
	}, drift)

	drift, err = repo.FindDrift(ctx, models.CounterUserFollowers)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, b.ID, drift[0].ID)

	n, err := repo.Repair(ctx, models.CounterProjectLikes)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.Repair(ctx, models.CounterUserFollowers)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	fx.Reload(drifted)
	fx.Reload(b)
	assert.Equal(t, 1, drifted.LikesCount)
	assert.Equal(t, 1, b.FollowersCount)

	n, err = repo.Repair(ctx, models.CounterProjectLikes)
	require.NoError(t, err)
	assert.Zero(t, n, "a second repair finds nothing")
}
