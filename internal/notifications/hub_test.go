package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_BroadcastReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()
	a1, err := hub.Register(1, nil)
	require.NoError(t, err)
	a2, err := hub.Register(1, nil)
	require.NoError(t, err)
	b, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.Broadcast(1, `{"type":"user_followed"}`)

	assert.Equal(t, `{"type":"user_followed"}`, string(<-a1.Send))
	assert.Equal(t, `{"type":"user_followed"}`, string(<-a2.Send))
	assert.Empty(t, b.Send)
	assert.Equal(t, 3, hub.ConnectionCount())
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(5, nil)
	require.NoError(t, err)
	assert.True(t, hub.IsOnline(5))

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)

	assert.False(t, hub.IsOnline(5))
	assert.Zero(t, hub.ConnectionCount())
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(9, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(9, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)

	_, err = hub.Register(10, nil)
	assert.NoError(t, err)
}

func TestHub_RejectsAfterShutdown(t *testing.T) {
	hub := NewHub()
	_, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	assert.Zero(t, hub.ConnectionCount())
	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrServerConnLimit)
}

func TestClient_DeliverDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, c.Deliver([]byte(`{"type":"project_liked"}`)))
	}
	for i := 0; i < 5; i++ {
		assert.False(t, c.Deliver([]byte(`{"type":"project_liked"}`)))
	}
	assert.Len(t, c.Send, sendBufferSize)
	assert.Equal(t, int64(5), c.Dropped())
}

func TestClient_DeliverAfterClose(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(4, nil)
	require.NoError(t, err)

	c.Close("bye")
	c.Close("again")

	assert.False(t, c.Deliver([]byte("late")))
	assert.Empty(t, c.Send)
	assert.Zero(t, c.Dropped())
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(6, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))

	select {
	case <-c.done:
	default:
		t.Fatal("client not closed on shutdown")
	}
	assert.Equal(t, "server shutting down", c.closeReason)
}

func TestResyncEnvelope(t *testing.T) {
	raw, err := resyncEnvelope(7)
	require.NoError(t, err)

	var evt struct {
		Type    string       `json:"type"`
		Payload ResyncNotice `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.Equal(t, EventResyncRequired, evt.Type)
	assert.Equal(t, int64(7), evt.Payload.Dropped)
	assert.Equal(t, EventResyncRequired, eventType(raw))
}

func TestHub_StartWiringDeliversPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))

	target, err := hub.Register(42, nil)
	require.NoError(t, err)
	other, err := hub.Register(43, nil)
	require.NoError(t, err)

	require.NoError(t, n.Publish(context.Background(), 42, EventCommentCreated, map[string]any{"project_id": 7}))

	assert.Eventually(t, func() bool { return len(target.Send) == 1 }, testEventuallyTimeout, testPollInterval)
	assert.Contains(t, string(<-target.Send), `"type":"comment_created"`)
	assert.Empty(t, other.Send)
}

func TestEventType(t *testing.T) {
	assert.Equal(t, "event_joined", eventType([]byte(`{"type":"event_joined","payload":{}}`)))
	assert.Equal(t, "unknown", eventType([]byte(`not json`)))
	assert.Equal(t, "unknown", eventType([]byte(`{}`)))
}
