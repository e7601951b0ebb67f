package repository

import (
	"context"
	"regexp"
	"testing"

	"revline/internal/cache"
	"revline/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const selectUserByID = `SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		expectedUser *models.User
		expectedCode string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "username", "email"}).
					AddRow(1, "testuser", "test@example.com")
				mock.ExpectQuery(regexp.QuoteMeta(selectUserByID)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Username: "testuser", Email: "test@example.com"},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(selectUserByID)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedCode: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedCode != "" {
				assert.True(t, models.IsCode(err, tt.expectedCode), "got %v", err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.expectedUser.Username, user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByIDUsesProfileCache(t *testing.T) {
	db, mock := setupMockDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := NewUserRepository(db, cache.New(rdb))
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByID)).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(7, "miata"))

	first, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, first.Username, second.Username)
	assert.True(t, mr.Exists(cache.ProfileKey(7)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "dup", Email: "dup@example.com", Password: "x"})
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateProfileMissingUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "bio"=$1,"updated_at"=$2 WHERE id = $3`)).
		WithArgs("new bio", sqlmock.AnyArg(), 42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateProfile(context.Background(), 42, map[string]any{"bio": "new bio"})
	assert.True(t, models.IsCode(err, models.CodeNotFound), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListDiscoverable(t *testing.T) {
	db, fx := setupSQLite(t)
	repo := NewUserRepository(db, nil)
	follows := NewFollowRepository(db)
	ctx := context.Background()

	viewer := fx.User("viewer")
	followed := fx.User("followed")
	busy := fx.User("busy")
	quietA := fx.User("quiet_a")
	quietB := fx.User("quiet_b")

	fx.Project(busy, "Turbo swap")
	fx.Project(busy, "Widebody")
	fx.Event(busy, "Cars and coffee", "2030-01-01", nil)
	fx.Project(followed, "Already seen")

	_, err := follows.Follow(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)
	_, err = follows.Follow(ctx, quietB.ID, busy.ID)
	require.NoError(t, err)

	got, err := repo.ListDiscoverable(ctx, viewer.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, busy.ID, got[0].User.ID)
	assert.Equal(t, models.UserStats{ProjectCount: 2, EventCount: 1, FollowerCount: 1}, got[0].Stats)
	assert.Equal(t, 4, got[0].Score)

	// quiet_a and quiet_b both score zero and keep id order.
	assert.Equal(t, quietA.ID, got[1].User.ID)
	assert.Equal(t, quietB.ID, got[2].User.ID)

	limited, err := repo.ListDiscoverable(ctx, viewer.ID, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, busy.ID, limited[0].User.ID)
}
