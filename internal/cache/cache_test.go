package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Followers int    `json:"followers"`
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	_ = rdb.Close()

	rdb, err = Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = rdb.Close()

	_, err = Connect(context.Background(), "redis://%zz")
	assert.Error(t, err)
}

func TestAsideLoadsOnceThenHits(t *testing.T) {
	_, rdb := setupRedis(t)
	c := New(rdb)
	ctx := context.Background()

	loads := 0
	load := func(context.Context) (profile, error) {
		loads++
		return profile{ID: 1, Username: "rotary_rob", Followers: 3}, nil
	}

	first, err := Aside(ctx, c, ProfileKey(1), ProfileTTL, load)
	require.NoError(t, err)
	second, err := Aside(ctx, c, ProfileKey(1), ProfileTTL, load)
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)

	c.Invalidate(ctx, ProfileKey(1))
	_, err = Aside(ctx, c, ProfileKey(1), ProfileTTL, load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestAsideDoesNotCacheErrors(t *testing.T) {
	mr, rdb := setupRedis(t)
	c := New(rdb)

	_, err := Aside(context.Background(), c, ProfileKey(2), ProfileTTL, func(context.Context) (profile, error) {
		return profile{}, errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists(ProfileKey(2)))
}

func TestDisabledCacheIsPassThrough(t *testing.T) {
	c := New(nil)
	assert.False(t, c.Enabled())

	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Aside(context.Background(), c, ProfileKey(3), ProfileTTL, func(context.Context) (profile, error) {
			calls++
			return profile{ID: 3}, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	c.Invalidate(context.Background(), ProfileKey(3))
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	mr, rdb := setupRedis(t)
	require.NoError(t, mr.Set(ProfileKey(4), "{not json"))

	var p profile
	hit, err := New(rdb).Get(context.Background(), ProfileKey(4), &p)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists(ProfileKey(4)))
}

func TestLock(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	lock, err := AcquireLock(ctx, rdb, ReconcileLockKey, time.Minute)
	require.NoError(t, err)

	_, err = AcquireLock(ctx, rdb, ReconcileLockKey, time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists(ReconcileLockKey))

	again, err := AcquireLock(ctx, rdb, ReconcileLockKey, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLockReleaseDoesNotStealAfterExpiry(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	stale, err := AcquireLock(ctx, rdb, ReconcileLockKey, time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	current, err := AcquireLock(ctx, rdb, ReconcileLockKey, time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists(ReconcileLockKey), "stale holder must not delete the new owner's lock")

	require.NoError(t, current.Release(ctx))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "profile:7", ProfileKey(7))
	assert.Equal(t, "ws_ticket:abc", WSTicketKey("abc"))
	assert.Equal(t, "blacklist:j1", BlacklistKey("j1"))
}
