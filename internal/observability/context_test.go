package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("stores and retrieves request ID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithRequestID(ctx, "req-123")

		result := RequestIDFromContext(ctx)
		assert.Equal(t, "req-123", result)
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		ctx := context.Background()
		result := RequestIDFromContext(ctx)
		assert.Equal(t, "", result)
	})
}

func TestCorrelationIDContext(t *testing.T) {
	t.Run("stores and retrieves correlation ID", func(t *testing.T) {
		ctx := WithCorrelationID(context.Background(), "corr-1")

		assert.Equal(t, "corr-1", CorrelationIDFromContext(ctx))
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		assert.Equal(t, "", CorrelationIDFromContext(context.Background()))
	})

	t.Run("is independent of request ID", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")

		assert.Equal(t, "", CorrelationIDFromContext(ctx))
	})
}

func TestLoggerFromContext(t *testing.T) {
	t.Run("adds IDs present in context", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)

		ctx := WithRequestID(context.Background(), "req-9")
		ctx = WithCorrelationID(ctx, "corr-9")
		logger := LoggerFromContext(ctx, base)
		logger.Info().Msg("hello")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "req-9", entry["request_id"])
		assert.Equal(t, "corr-9", entry["correlation_id"])
	})

	t.Run("omits missing IDs", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)

		logger := LoggerFromContext(context.Background(), base)
		logger.Info().Msg("hello")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.NotContains(t, entry, "request_id")
		assert.NotContains(t, entry, "correlation_id")
	})
}
