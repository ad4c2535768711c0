package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestContextHandler_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter("info", "json", &buf)
	defer Initialize("info", "text")

	ctx := WithRequestID(context.Background(), "req-42")
	InfoContext(ctx, "booking created", "booking_id", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "booking created", entry["msg"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, float64(7), entry["booking_id"])
}

func TestRequestID_Missing(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestFromContextAndWithService(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter("info", "json", &buf)
	defer Initialize("info", "text")

	FromContext(WithRequestID(context.Background(), "req-7")).Info("request")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-7", entry["request_id"])

	buf.Reset()
	WithService("jobs").Info("Starting job")
	entry = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "jobs", entry["service"])
	assert.NotContains(t, entry, "request_id")
}
