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

func TestCommentRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	comment := &models.Comment{Content: "Clean swap!", ProjectID: 1, UserID: 2, Username: "fan"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "projects" WHERE "projects"."id" = $1 ORDER BY "projects"."id" LIMIT $2`)).
		WithArgs(1, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "projects" SET "comments_count"=comments_count + 1 WHERE id = $1`)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(ctx, comment)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), comment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_CreateOnMissingProjectWritesNothing(t *testing.T) {
	db, fx := setupSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	owner := fx.User("owner")
	project := fx.Project(owner, "Supra")

	require.NoError(t, repo.Create(ctx, &models.Comment{ProjectID: project.ID, UserID: owner.ID, Username: owner.Username, Content: "first"}))

	// A missing project fails before any write.
	err := repo.Create(ctx, &models.Comment{ProjectID: project.ID + 100, UserID: owner.ID, Username: owner.Username, Content: "lost"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	fx.Reload(project)
	assert.Equal(t, 1, project.CommentsCount)
}

func TestCommentRepository_ListByProjectOldestFirst(t *testing.T) {
	db, fx := setupSQLite(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	owner := fx.User("owner")
	project := fx.Project(owner, "AE86")
	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, &models.Comment{ProjectID: project.ID, UserID: owner.ID, Username: owner.Username, Content: content}))
	}

	comments, err := repo.ListByProject(ctx, project.ID, 2)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "one", comments[0].Content)
	assert.Equal(t, "two", comments[1].Content)
}
