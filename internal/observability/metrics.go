package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revline_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "revline_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FollowOperations counts follow graph mutations by operation and whether an edge changed.
	FollowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revline_follow_operations_total",
		Help: "Follow and unfollow operations by outcome",
	}, []string{"operation", "changed"})

	// LikeToggles counts like toggles by resulting state.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revline_like_toggles_total",
		Help: "Like toggles by resulting state",
	}, []string{"state"})

	// CommentsCreated counts comments written.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revline_comments_created_total",
		Help: "Total number of comments created",
	})

	// EventJoins counts join attempts by result.
	EventJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revline_event_joins_total",
		Help: "Event join attempts by result",
	}, []string{"result"})

	// CounterDrift counts denormalized counter disagreements by field.
	// Both skipped guarded decrements and sweep findings land here.
	CounterDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revline_counter_drift_total",
		Help: "Denormalized counter drift observed, by field",
	}, []string{"field"})

	// ReconcileRuns counts sweep runs by result.
	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revline_reconcile_runs_total",
		Help: "Reconciliation sweep runs by result",
	}, []string{"result"})

	// ReconcileDuration records how long sweeps take.
	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "revline_reconcile_duration_seconds",
		Help:    "Reconciliation sweep duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// DiscoveryLatency records discovery and search latency by surface.
	DiscoveryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "revline_discovery_latency_seconds",
		Help:    "Discovery and search latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"surface"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "revline_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts realtime events delivered by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revline_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revline_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// TrackDiscovery returns a function that records discovery latency for surface when called.
func TrackDiscovery(surface string) func() {
	start := time.Now()
	return func() {
		DiscoveryLatency.WithLabelValues(surface).Observe(time.Since(start).Seconds())
	}
}

// RecordFollow records a follow graph mutation.
func RecordFollow(operation string, changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	FollowOperations.WithLabelValues(operation, label).Inc()
}

// RecordCounterDrift adds n drifted rows for field.
func RecordCounterDrift(field string, n int) {
	if n <= 0 {
		return
	}
	CounterDrift.WithLabelValues(field).Add(float64(n))
}
