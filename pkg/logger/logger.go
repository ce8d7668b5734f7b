// Package logger configures the process-wide slog logger. Log output goes to
// stderr so that command output (emoji, JSON) stays clean on stdout.
package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

// Setup installs the default slog logger. Level is one of debug, info, warn,
// error, off; format is json or text.
func Setup(level string, format string) {
	if level == "off" {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return
	}
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithComponent returns a child of the default logger tagged with the
// component name.
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// WithRequestID stores a request ID in the context for FromContext to pick
// up.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// RequestIDFromContext returns the request ID previously stored with
// WithRequestID, or the empty string.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the default logger, tagged with the request ID when
// the context carries one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("request_id", id)
	}
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
