package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestLoggerFromContext(t *testing.T) {
	// Without a delivery id the shared logger comes back as-is.
	assert.Same(t, Logger(), LoggerFromContext(context.Background()))

	ctx := WithDeliveryID(context.Background(), "dlv-1")
	assert.NotSame(t, Logger(), LoggerFromContext(ctx))
}
