package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const (
	ctxKeyDeliveryID ctxKey = "delivery_id"
)

// basic global logger, JSON to stdout; verbosity comes from
// ASSIST_LOG_LEVEL (debug|info|warn|error, default info).
var logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: parseLevel(os.Getenv("ASSIST_LOG_LEVEL")),
}))

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func Logger() *slog.Logger {
	return logger
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return logger.With(kv...)
}

// WithDeliveryID stores the webhook delivery id in the context.
func WithDeliveryID(ctx context.Context, deliveryID string) context.Context {
	return context.WithValue(ctx, ctxKeyDeliveryID, deliveryID)
}

// LoggerFromContext adds delivery_id if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	id, _ := ctx.Value(ctxKeyDeliveryID).(string)
	if id == "" {
		return logger
	}
	return logger.With("delivery_id", id)
}
