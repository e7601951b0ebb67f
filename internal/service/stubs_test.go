package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"revline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnexpectedCall = errors.New("unexpected repository call")

type userRepoStub struct {
	getByIDFn          func(context.Context, uint) (*models.User, error)
	getByIDsFn         func(context.Context, []uint) ([]models.User, error)
	getByEmailFn       func(context.Context, string) (*models.User, error)
	getByUsernameFn    func(context.Context, string) (*models.User, error)
	existsFn           func(context.Context, uint) (bool, error)
	createFn           func(context.Context, *models.User) error
	updateProfileFn    func(context.Context, uint, map[string]any) error
	listDiscoverableFn func(context.Context, uint, int) ([]models.DiscoveredUser, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateProfileFn(ctx, id, fields)
}
func (s *userRepoStub) ListDiscoverable(ctx context.Context, viewerID uint, limit int) ([]models.DiscoveredUser, error) {
	return s.listDiscoverableFn(ctx, viewerID, limit)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:          func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByIDsFn:         func(context.Context, []uint) ([]models.User, error) { return nil, nil },
		getByEmailFn:       func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		existsFn:           func(context.Context, uint) (bool, error) { return true, nil },
		createFn:           func(context.Context, *models.User) error { return nil },
		updateProfileFn:    func(context.Context, uint, map[string]any) error { return nil },
		listDiscoverableFn: func(context.Context, uint, int) ([]models.DiscoveredUser, error) { return nil, nil },
	}
}

type followRepoStub struct {
	followFn        func(context.Context, uint, uint) (bool, error)
	unfollowFn      func(context.Context, uint, uint) (bool, error)
	isFollowingFn   func(context.Context, uint, uint) (bool, error)
	followedIDsFn   func(context.Context, uint) ([]uint, error)
	followerIDsFn   func(context.Context, uint) ([]uint, error)
	listFollowersFn func(context.Context, uint, int, int) ([]models.User, error)
	listFollowingFn func(context.Context, uint, int, int) ([]models.User, error)
}

func (s *followRepoStub) Follow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.followFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) Unfollow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.unfollowFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followeeID)
}
func (s *followRepoStub) FollowedIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followedIDsFn(ctx, userID)
}
func (s *followRepoStub) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followerIDsFn(ctx, userID)
}
func (s *followRepoStub) ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return s.listFollowersFn(ctx, userID, limit, offset)
}
func (s *followRepoStub) ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return s.listFollowingFn(ctx, userID, limit, offset)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		followFn:        func(context.Context, uint, uint) (bool, error) { return true, nil },
		unfollowFn:      func(context.Context, uint, uint) (bool, error) { return true, nil },
		isFollowingFn:   func(context.Context, uint, uint) (bool, error) { return false, nil },
		followedIDsFn:   func(context.Context, uint) ([]uint, error) { return []uint{}, nil },
		followerIDsFn:   func(context.Context, uint) ([]uint, error) { return []uint{}, nil },
		listFollowersFn: func(context.Context, uint, int, int) ([]models.User, error) { return nil, nil },
		listFollowingFn: func(context.Context, uint, int, int) ([]models.User, error) { return nil, nil },
	}
}

type projectRepoStub struct {
	createFn          func(context.Context, *models.Project) error
	getByIDFn         func(context.Context, uint, uint) (*models.Project, error)
	existsFn          func(context.Context, uint) (bool, error)
	updateFn          func(context.Context, uint, map[string]any) error
	listByUserFn      func(context.Context, uint, int, uint) ([]*models.Project, error)
	feedFn            func(context.Context, uint, int) ([]*models.Project, error)
	trendingFn        func(context.Context, int, uint) ([]*models.Project, error)
	likedProjectIDsFn func(context.Context, uint, []uint) ([]uint, error)
}

func (s *projectRepoStub) Create(ctx context.Context, project *models.Project) error {
	return s.createFn(ctx, project)
}
func (s *projectRepoStub) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Project, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *projectRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *projectRepoStub) Update(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFn(ctx, id, fields)
}
func (s *projectRepoStub) ListByUser(ctx context.Context, userID uint, limit int, viewerID uint) ([]*models.Project, error) {
	return s.listByUserFn(ctx, userID, limit, viewerID)
}
func (s *projectRepoStub) Feed(ctx context.Context, viewerID uint, limit int) ([]*models.Project, error) {
	return s.feedFn(ctx, viewerID, limit)
}
func (s *projectRepoStub) Trending(ctx context.Context, limit int, viewerID uint) ([]*models.Project, error) {
	return s.trendingFn(ctx, limit, viewerID)
}
func (s *projectRepoStub) LikedProjectIDs(ctx context.Context, userID uint, projectIDs []uint) ([]uint, error) {
	return s.likedProjectIDsFn(ctx, userID, projectIDs)
}

func noopProjectRepo() *projectRepoStub {
	return &projectRepoStub{
		createFn:          func(context.Context, *models.Project) error { return nil },
		getByIDFn:         func(_ context.Context, id, _ uint) (*models.Project, error) { return &models.Project{ID: id}, nil },
		existsFn:          func(context.Context, uint) (bool, error) { return true, nil },
		updateFn:          func(context.Context, uint, map[string]any) error { return nil },
		listByUserFn:      func(context.Context, uint, int, uint) ([]*models.Project, error) { return nil, nil },
		feedFn:            func(context.Context, uint, int) ([]*models.Project, error) { return nil, nil },
		trendingFn:        func(context.Context, int, uint) ([]*models.Project, error) { return nil, nil },
		likedProjectIDsFn: func(context.Context, uint, []uint) ([]uint, error) { return nil, nil },
	}
}

type eventRepoStub struct {
	createFn         func(context.Context, *models.Event) error
	getByIDFn        func(context.Context, uint) (*models.Event, error)
	updateFn         func(context.Context, uint, map[string]any) error
	joinFn           func(context.Context, uint, uint) error
	leaveFn          func(context.Context, uint, uint) (bool, error)
	participantsFn   func(context.Context, uint) ([]models.User, error)
	joinedEventIDsFn func(context.Context, uint, []uint) ([]uint, error)
	listUpcomingFn   func(context.Context, string, int) ([]*models.Event, error)
	listByUserFn     func(context.Context, uint, int) ([]*models.Event, error)
}

func (s *eventRepoStub) Create(ctx context.Context, event *models.Event) error {
	return s.createFn(ctx, event)
}
func (s *eventRepoStub) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	return s.getByIDFn(ctx, id)
}
func (s *eventRepoStub) Update(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFn(ctx, id, fields)
}
func (s *eventRepoStub) Join(ctx context.Context, eventID, userID uint) error {
	return s.joinFn(ctx, eventID, userID)
}
func (s *eventRepoStub) Leave(ctx context.Context, eventID, userID uint) (bool, error) {
	return s.leaveFn(ctx, eventID, userID)
}
func (s *eventRepoStub) Participants(ctx context.Context, eventID uint) ([]models.User, error) {
	return s.participantsFn(ctx, eventID)
}
func (s *eventRepoStub) JoinedEventIDs(ctx context.Context, userID uint, eventIDs []uint) ([]uint, error) {
	return s.joinedEventIDsFn(ctx, userID, eventIDs)
}
func (s *eventRepoStub) ListUpcoming(ctx context.Context, today string, limit int) ([]*models.Event, error) {
	return s.listUpcomingFn(ctx, today, limit)
}
func (s *eventRepoStub) ListByUser(ctx context.Context, userID uint, limit int) ([]*models.Event, error) {
	return s.listByUserFn(ctx, userID, limit)
}

func noopEventRepo() *eventRepoStub {
	return &eventRepoStub{
		createFn:         func(context.Context, *models.Event) error { return nil },
		getByIDFn:        func(_ context.Context, id uint) (*models.Event, error) { return &models.Event{ID: id}, nil },
		updateFn:         func(context.Context, uint, map[string]any) error { return nil },
		joinFn:           func(context.Context, uint, uint) error { return nil },
		leaveFn:          func(context.Context, uint, uint) (bool, error) { return true, nil },
		participantsFn:   func(context.Context, uint) ([]models.User, error) { return nil, nil },
		joinedEventIDsFn: func(context.Context, uint, []uint) ([]uint, error) { return nil, nil },
		listUpcomingFn:   func(context.Context, string, int) ([]*models.Event, error) { return nil, nil },
		listByUserFn:     func(context.Context, uint, int) ([]*models.Event, error) { return nil, nil },
	}
}

type searchRepoStub struct {
	searchUsersFn    func(context.Context, string, int) ([]models.UserSearchHit, error)
	searchEventsFn   func(context.Context, string, string, int) ([]*models.Event, error)
	searchProjectsFn func(context.Context, string, int) ([]*models.Project, error)
}

func (s *searchRepoStub) SearchUsers(ctx context.Context, query string, limit int) ([]models.UserSearchHit, error) {
	return s.searchUsersFn(ctx, query, limit)
}
func (s *searchRepoStub) SearchEvents(ctx context.Context, query, today string, limit int) ([]*models.Event, error) {
	return s.searchEventsFn(ctx, query, today, limit)
}
func (s *searchRepoStub) SearchProjects(ctx context.Context, query string, limit int) ([]*models.Project, error) {
	return s.searchProjectsFn(ctx, query, limit)
}

// failingSearchRepo errors on every call, for paths that must not reach the database.
func failingSearchRepo() *searchRepoStub {
	return &searchRepoStub{
		searchUsersFn: func(context.Context, string, int) ([]models.UserSearchHit, error) {
			return nil, errUnexpectedCall
		},
		searchEventsFn: func(context.Context, string, string, int) ([]*models.Event, error) {
			return nil, errUnexpectedCall
		},
		searchProjectsFn: func(context.Context, string, int) ([]*models.Project, error) {
			return nil, errUnexpectedCall
		},
	}
}

type reconcileRepoStub struct {
	findDriftFn func(context.Context, models.CounterField) ([]models.CounterDrift, error)
	repairFn    func(context.Context, models.CounterField) (int64, error)
}

func (s *reconcileRepoStub) FindDrift(ctx context.Context, field models.CounterField) ([]models.CounterDrift, error) {
	return s.findDriftFn(ctx, field)
}
func (s *reconcileRepoStub) Repair(ctx context.Context, field models.CounterField) (int64, error) {
	return s.repairFn(ctx, field)
}

// fixedClock pins "now" to noon UTC on date (YYYY-MM-DD).
func fixedClock(date string) Clock {
	t, err := time.Parse(models.EventDateLayout, date)
	if err != nil {
		panic(err)
	}
	t = t.Add(12 * time.Hour)
	return func() time.Time { return t }
}

// assertAppErrorCode asserts that err is an AppError with the given code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidation)
}
