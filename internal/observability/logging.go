// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// AsyncLogger logs the lifecycle of background work (publishes, sweeps) with a stable operation name.
type AsyncLogger struct {
	logger    *slog.Logger
	operation string
}

// NewAsyncLogger returns an AsyncLogger for operation. A nil logger falls back to slog.Default.
func NewAsyncLogger(logger *slog.Logger, operation string) *AsyncLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncLogger{logger: logger, operation: operation}
}

// Start logs the start of an asynchronous operation.
func (l *AsyncLogger) Start(ctx context.Context, attrs ...any) {
	l.logger.DebugContext(ctx, "async operation started", l.with("async_start", attrs)...)
}

// Done logs the completion of an asynchronous operation.
func (l *AsyncLogger) Done(ctx context.Context, elapsed time.Duration, attrs ...any) {
	attrs = append(attrs, slog.Duration("elapsed", elapsed))
	l.logger.InfoContext(ctx, "async operation completed", l.with("async_end", attrs)...)
}

// Fail logs an error in an asynchronous operation.
func (l *AsyncLogger) Fail(ctx context.Context, err error, attrs ...any) {
	attrs = append(attrs, slog.String("error", err.Error()))
	l.logger.ErrorContext(ctx, "async operation failed", l.with("async_error", attrs)...)
}

func (l *AsyncLogger) with(kind string, attrs []any) []any {
	out := make([]any, 0, len(attrs)+2)
	out = append(out, slog.String("operation", l.operation), slog.String("type", kind))
	return append(out, attrs...)
}

// WSLogger provides structured logging for websocket hub lifecycle.
type WSLogger struct {
	hubName string
	logger  *slog.Logger
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(logger *slog.Logger, hubName string) *WSLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSLogger{hubName: hubName, logger: logger}
}

// LogConnect logs a client connection.
func (l *WSLogger) LogConnect(ctx context.Context, userID uint) {
	l.logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.Uint64("ws_user_id", uint64(userID)),
	)
}

// LogDisconnect logs a client disconnection.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, reason string) {
	l.logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.Uint64("ws_user_id", uint64(userID)),
		slog.String("reason", reason),
	)
}

// LogError logs a websocket error.
func (l *WSLogger) LogError(ctx context.Context, userID uint, err error, eventType string) {
	l.logger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.Uint64("ws_user_id", uint64(userID)),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
