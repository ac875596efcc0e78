package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerStampsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRequestLogger(NewJSONHandler(&buf, slog.LevelDebug), "req-123", "orchestrator")

	logger.Info(context.Background(), "forwarding chunk", "chunk_index", 4)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "orchestrator", entry["component"])
	assert.Equal(t, "forwarding chunk", entry["msg"])
	assert.Equal(t, float64(4), entry["chunk_index"])
}

func TestRequestLoggerRedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRequestLogger(NewJSONHandler(&buf, slog.LevelInfo), "req-1", "server")

	logger.Info(context.Background(), "override applied", "api_key", "sk-secret", "model", "gpt-4o")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[REDACTED]", entry["api_key"])
	assert.Equal(t, "gpt-4o", entry["model"])
}

func TestDebugDoesNotRedact(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRequestLogger(NewJSONHandler(&buf, slog.LevelDebug), "req-1", "server")

	logger.Debug(context.Background(), "debug detail", "token", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["token"])
}

func TestRedactOddArgsReturnedAsIs(t *testing.T) {
	args := []any{"orphan"}
	assert.Equal(t, args, redactSensitiveData(args))
}
