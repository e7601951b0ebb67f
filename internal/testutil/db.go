// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"revline/internal/database"
	"revline/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB returns an isolated in-memory database with the full schema.
// The pool is limited to one connection, so code under test must use the
// transaction handle inside a transaction rather than the outer *gorm.DB.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// Fixtures creates rows directly, bypassing counters, for arranging test state.
type Fixtures struct {
	t  testing.TB
	db *gorm.DB
	n  int
}

// NewFixtures returns a fixture builder over db.
func NewFixtures(t testing.TB, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

// User inserts a user named username.
func (f *Fixtures) User(username string) *models.User {
	f.t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

// Project inserts a project owned by owner.
func (f *Fixtures) Project(owner *models.User, title string) *models.Project {
	f.t.Helper()
	f.n++
	p := &models.Project{
		UserID:    owner.ID,
		Title:     title,
		CarMake:   "Mazda",
		CarModel:  "MX-5",
		CarYear:   1990,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, f.n, 0, time.UTC),
	}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

// Event inserts an event owned by owner on date (YYYY-MM-DD) with an optional capacity.
func (f *Fixtures) Event(owner *models.User, title, date string, capacity *int) *models.Event {
	f.t.Helper()
	e := &models.Event{
		UserID:          owner.ID,
		Title:           title,
		EventDate:       date,
		EventTime:       "10:00",
		Location:        "Lot B",
		EventType:       models.EventTypeCarMeet,
		MaxParticipants: capacity,
	}
	require.NoError(f.t, f.db.Create(e).Error)
	return e
}

// Reload re-reads dest by its primary key.
func (f *Fixtures) Reload(dest any) {
	f.t.Helper()
	require.NoError(f.t, f.db.First(dest).Error)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
