package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"revline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(users *userRepoStub, follows *followRepoStub) *UserService {
	svc := NewUserService(users, follows)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func strPtr(s string) *string { return &s }

func TestUserService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestUserService(noopUserRepo(), noopFollowRepo())
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "password123"}},
		{"missing password", RegisterInput{Username: "alice", Email: "a@example.com"}},
		{"short password", RegisterInput{Username: "alice", Email: "a@example.com", Password: "short"}},
		{"bad email", RegisterInput{Username: "alice", Email: "not-an-email", Password: "password123"}},
		{"bad username", RegisterInput{Username: "_alice", Email: "a@example.com", Password: "password123"}},
		{"blank username", RegisterInput{Username: "   ", Email: "a@example.com", Password: "password123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.input)
			assertValidationError(t, err)
		})
	}
}

func TestUserService_Register_UsernameCheckedBeforeEmail(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByUsernameFn = func(context.Context, string) (*models.User, error) {
		return &models.User{ID: 1, Username: "alice"}, nil
	}
	emailChecked := false
	users.getByEmailFn = func(context.Context, string) (*models.User, error) {
		emailChecked = true
		return &models.User{ID: 2}, nil
	}

	_, err := newTestUserService(users, noopFollowRepo()).Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	assertAppErrorCode(t, err, models.CodeConflict)
	assert.Contains(t, err.Error(), "Username")
	assert.False(t, emailChecked)
}

func TestUserService_Register_EmailTaken(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	users.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 2, Email: email}, nil
	}
	users.createFn = func(context.Context, *models.User) error {
		t.Error("create must not run when the email is taken")
		return nil
	}

	_, err := newTestUserService(users, noopFollowRepo()).Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	assertAppErrorCode(t, err, models.CodeConflict)
	assert.Contains(t, err.Error(), "Email")
}

func TestUserService_Register_Success(t *testing.T) {
	t.Parallel()

	users := noopUserRepo()
	var saved *models.User
	users.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 11
		saved = u
		return nil
	}

	user, err := newTestUserService(users, noopFollowRepo()).Register(context.Background(), RegisterInput{
		Username: "  alice ",
		Email:    "Alice@Example.COM",
		Password: "password123",
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Equal(t, uint(11), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password123", saved.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("password123")))
	assert.Empty(t, user.FollowedUsers)
	assert.NotNil(t, user.Followers)
}

func TestUserService_Authenticate(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	users := noopUserRepo()
	users.getByUsernameFn = func(_ context.Context, username string) (*models.User, error) {
		if username != "alice" {
			return nil, nil
		}
		return &models.User{ID: 3, Username: "alice", Password: string(hash)}, nil
	}
	follows := noopFollowRepo()
	follows.followedIDsFn = func(context.Context, uint) ([]uint, error) { return []uint{4, 5}, nil }
	follows.followerIDsFn = func(context.Context, uint) ([]uint, error) { return []uint{5}, nil }
	svc := newTestUserService(users, follows)
	ctx := context.Background()

	t.Run("valid credentials attach edges", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, "alice", "password123")
		require.NoError(t, err)
		assert.Equal(t, []uint{4, 5}, user.FollowedUsers)
		assert.Equal(t, []uint{5}, user.Followers)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "alice", "password124")
		assertAppErrorCode(t, err, models.CodeUnauthenticated)
	})

	t.Run("unknown user looks the same", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "bob", "password123")
		assertAppErrorCode(t, err, models.CodeUnauthenticated)
		assert.Contains(t, err.Error(), "Invalid credentials")
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	t.Run("bio too long", func(t *testing.T) {
		t.Parallel()
		svc := newTestUserService(noopUserRepo(), noopFollowRepo())
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID: 1,
			Bio:    strPtr(strings.Repeat("x", 501)),
		})
		assertValidationError(t, err)
	})

	t.Run("username taken by someone else", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByUsernameFn = func(context.Context, string) (*models.User, error) {
			return &models.User{ID: 9}, nil
		}
		_, err := newTestUserService(users, noopFollowRepo()).UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:   1,
			Username: strPtr("taken"),
		})
		assertAppErrorCode(t, err, models.CodeConflict)
	})

	t.Run("keeping own username is allowed", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByUsernameFn = func(context.Context, string) (*models.User, error) {
			return &models.User{ID: 1}, nil
		}
		_, err := newTestUserService(users, noopFollowRepo()).UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:   1,
			Username: strPtr("mine"),
		})
		assert.NoError(t, err)
	})

	t.Run("only provided fields are written", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		var written map[string]any
		users.updateProfileFn = func(_ context.Context, _ uint, fields map[string]any) error {
			written = fields
			return nil
		}
		_, err := newTestUserService(users, noopFollowRepo()).UpdateProfile(context.Background(), UpdateProfileInput{
			UserID: 1,
			Bio:    strPtr("turbo all the things"),
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"bio": "turbo all the things"}, written)
	})

	t.Run("relative profile image rejected", func(t *testing.T) {
		t.Parallel()
		svc := newTestUserService(noopUserRepo(), noopFollowRepo())
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:       1,
			ProfileImage: strPtr("/uploads/me.png"),
		})
		assertValidationError(t, err)
	})

	t.Run("repository error propagates", func(t *testing.T) {
		t.Parallel()
		repoErr := errors.New("update failed")
		users := noopUserRepo()
		users.updateProfileFn = func(context.Context, uint, map[string]any) error { return repoErr }
		_, err := newTestUserService(users, noopFollowRepo()).UpdateProfile(context.Background(), UpdateProfileInput{
			UserID: 1,
			Bio:    strPtr("x"),
		})
		assert.ErrorIs(t, err, repoErr)
	})
}
