package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestRecordCounterDrift(t *testing.T) {
	before := testutil.ToFloat64(CounterDrift.WithLabelValues("projects.likes_count"))
	RecordCounterDrift("projects.likes_count", 3)
	RecordCounterDrift("projects.likes_count", 0)
	after := testutil.ToFloat64(CounterDrift.WithLabelValues("projects.likes_count"))
	assert.Equal(t, float64(3), after-before)
}

func TestRecordFollow(t *testing.T) {
	before := testutil.ToFloat64(FollowOperations.WithLabelValues("follow", "true"))
	RecordFollow("follow", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(FollowOperations.WithLabelValues("follow", "true"))-before)
}

func TestAsyncLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := NewAsyncLogger(logger, "reconcile")

	l.Start(context.Background())
	l.Done(context.Background(), 2*time.Second, slog.Int("repaired", 4))
	l.Fail(context.Background(), errors.New("lock lost"))

	out := buf.String()
	assert.Contains(t, out, `"operation":"reconcile"`)
	assert.Contains(t, out, `"type":"async_end"`)
	assert.Contains(t, out, `"repaired":4`)
	assert.Contains(t, out, `"error":"lock lost"`)
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "revline-test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := StartServiceSpan(context.Background(), "svc", "method")
	EndSpan(span, errors.New("boom"))
	assert.Equal(t, "", TraceIDFromContext(ctx))
}

func TestInitTracingStdout(t *testing.T) {
	prevTracer, prevProvider := Tracer, otel.GetTracerProvider()
	t.Cleanup(func() {
		Tracer = prevTracer
		otel.SetTracerProvider(prevProvider)
	})

	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		ServiceName:  "revline-test",
		Environment:  "test",
		Enabled:      true,
		SamplerRatio: 1,
		Writer:       &buf,
	})
	require.NoError(t, err)

	ctx, span := StartServiceSpan(context.Background(), "EventService", "Join")
	assert.Len(t, TraceIDFromContext(ctx), 32)
	EndSpan(span, nil)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "EventService.Join")
	assert.Contains(t, buf.String(), "revline-test")
}

func TestInitTracingUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipkin")
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "root:AlwaysOnSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "root:TraceIDRatioBased{0.25}")
}
