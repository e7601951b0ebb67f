package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"revline/internal/cache"
	"revline/internal/models"
	"revline/internal/repository"
	"revline/internal/service"
	"revline/internal/testutil"
	"revline/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestBuiltinPresets(t *testing.T) {
	presets := BuiltinPresets()
	for _, name := range []string{"tiny", "demo", "load"} {
		p, ok := presets[name]
		require.True(t, ok, name)
		assert.NoError(t, p.Validate())
	}

	_, err := Lookup("enormous")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "demo")
}

func TestLoadPresets_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"probability above one", "presets:\n  - name: x\n    users: 1\n    like_probability: 1.5\n"},
		{"negative users", "presets:\n  - name: x\n    users: -1\n"},
		{"missing name", "presets:\n  - users: 3\n"},
		{"duplicate", "presets:\n  - name: x\n  - name: x\n"},
		{"not yaml", "presets: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPresets(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestUsernameFor(t *testing.T) {
	assert.Equal(t, "obrien_7", usernameFor("O'Brien", 7))
	assert.Equal(t, "driver_3", usernameFor("!!!", 3))

	long := usernameFor(strings.Repeat("a", 40), 12345)
	assert.Len(t, long, 30)
	assert.True(t, strings.HasSuffix(long, "_12345"))
	assert.NoError(t, validation.ValidateUsername(long))
}

func TestFactory_Deterministic(t *testing.T) {
	a := NewFactory(42, fixedNow)
	b := NewFactory(42, fixedNow)

	ua, ub := a.BuildUser(1, "h"), b.BuildUser(1, "h")
	assert.Equal(t, ua.Username, ub.Username)
	assert.NoError(t, validation.ValidateUsername(ua.Username))

	pa, pb := a.BuildProject(ua, 30), b.BuildProject(ub, 30)
	assert.Equal(t, pa.Title, pb.Title)
	assert.NoError(t, validation.ValidateCarYear(pa.CarYear, fixedNow))
	assert.False(t, pa.CreatedAt.After(fixedNow))
	assert.True(t, fixedNow.Sub(pa.CreatedAt) <= 30*24*time.Hour)

	event := a.BuildEvent(ua)
	assert.NoError(t, validation.ValidateEventDate(event.EventDate))
	assert.NoError(t, validation.ValidateEventTime(event.EventTime))
	assert.NoError(t, validation.ValidateEventType(event.EventType))
	assert.NoError(t, validation.ValidateCapacity(event.MaxParticipants))
}

func TestSeeder_DryRun(t *testing.T) {
	preset, err := Lookup("tiny")
	require.NoError(t, err)

	summary, err := NewSeeder(nil, Options{Seed: 7, FastHash: true, DryRun: true, Now: fixedNow}).
		Run(context.Background(), preset)
	require.NoError(t, err)

	assert.Equal(t, preset.Users, summary.Users)
	assert.Equal(t, preset.Users*preset.ProjectsPerUser, summary.Projects)
	assert.Equal(t, preset.Events, summary.Events)
	assert.LessOrEqual(t, summary.Follows, preset.Users*(preset.Users-1))
	assert.LessOrEqual(t, summary.Likes, summary.Projects*preset.Users)
}

func TestSeeder_WritesConsistentCounters(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	preset := Preset{
		Name:                  "test",
		Users:                 8,
		ProjectsPerUser:       2,
		Events:                4,
		FollowProbability:     0.4,
		LikeProbability:       0.4,
		MaxCommentsPerProject: 3,
		JoinProbability:       0.5,
		MaxDays:               10,
	}

	ctx := context.Background()
	summary, err := NewSeeder(db, Options{Seed: 99, FastHash: true, Now: fixedNow}).Run(ctx, preset)
	require.NoError(t, err)

	var users, follows, likes, comments int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(summary.Users), users)
	assert.Equal(t, int64(summary.Follows), follows)
	assert.Equal(t, int64(summary.Likes), likes)
	assert.Equal(t, int64(summary.Comments), comments)

	reconciler := service.NewReconciler(repository.NewReconcileRepository(db), cache.New(nil),
		func() time.Time { return fixedNow })
	report, err := reconciler.Sweep(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, report.TotalDrift(), "seeded counters should match edge rows: %+v", report.Drift)

	var self int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = followee_id").Count(&self).Error)
	assert.Zero(t, self)
}

func TestSeeder_CleanReplacesData(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	preset, err := Lookup("tiny")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = NewSeeder(db, Options{Seed: 1, FastHash: true, Now: fixedNow}).Run(ctx, preset)
	require.NoError(t, err)

	summary, err := NewSeeder(db, Options{Seed: 2, FastHash: true, Clean: true, Now: fixedNow}).Run(ctx, preset)
	require.NoError(t, err)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(summary.Users), users)
}
