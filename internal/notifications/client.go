package notifications

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"revline/internal/middleware"
	"revline/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10 // must stay below pongWait

	// Peers only send control frames; anything larger is a misbehaving client.
	maxInboundSize = 512

	sendBufferSize = 64
)

// EventResyncRequired tells a client that notifications were dropped and
// its view of counters may be stale.
const EventResyncRequired = "resync_required"

// ResyncNotice is the payload of an EventResyncRequired event.
type ResyncNotice struct {
	Dropped int64 `json:"dropped"`
}

// Client is one websocket session of a user on this replica. The hub queues
// envelopes on Send; WritePump is the only writer to Conn.
type Client struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte

	hub         *Hub
	dropped     atomic.Int64
	done        chan struct{}
	closeOnce   sync.Once
	closeReason string
}

// NewClient binds conn to userID under hub.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		hub:    hub,
		done:   make(chan struct{}),
	}
}

// Deliver queues message without blocking and reports whether it was queued.
// A full queue drops the message and schedules a resync notice.
func (c *Client) Deliver(message []byte) bool {
	select {
	case <-c.done:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "closed").Inc()
		return false
	default:
	}

	select {
	case c.Send <- message:
		return true
	default:
	}
	if c.dropped.Add(1) == 1 {
		middleware.Logger.Warn("notification queue full, dropping events", "user_id", c.UserID)
	}
	observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
	return false
}

// Dropped returns how many events are waiting to be reported in a resync notice.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Close stops the write loop, which sends a going-away frame carrying reason.
// Later calls do nothing.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.done)
	})
}

// ReadPump discards inbound frames and keeps the read deadline fresh on pongs.
// It returns when the peer goes away and unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.Close("")
		_ = c.Conn.Close()
	}()

	extend := func() error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) }
	c.Conn.SetReadLimit(maxInboundSize)
	_ = extend()
	c.Conn.SetPongHandler(func(string) error { return extend() })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("notification socket read failed", "user_id", c.UserID, "error", err)
			}
			return
		}
	}
}

// WritePump writes queued envelopes and keepalive pings until Close is called
// or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
			observability.WebSocketEventsTotal.WithLabelValues(eventType(msg)).Inc()
			if err := c.flushResync(); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.flushResync(); err != nil {
				return
			}
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, c.closeReason))
			return
		}
	}
}

func (c *Client) write(kind int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(kind, data)
}

// flushResync reports drops accumulated since the last notice.
func (c *Client) flushResync() error {
	n := c.dropped.Swap(0)
	if n == 0 {
		return nil
	}
	notice, err := resyncEnvelope(n)
	if err != nil {
		return err
	}
	observability.WebSocketEventsTotal.WithLabelValues(EventResyncRequired).Inc()
	return c.write(websocket.TextMessage, notice)
}

func resyncEnvelope(dropped int64) ([]byte, error) {
	return json.Marshal(Event{
		Type:    EventResyncRequired,
		Payload: ResyncNotice{Dropped: dropped},
		SentAt:  time.Now().UTC(),
	})
}

// eventType reads the envelope type for metrics without a full decode.
func eventType(message []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &head); err != nil || head.Type == "" {
		return "unknown"
	}
	return head.Type
}
