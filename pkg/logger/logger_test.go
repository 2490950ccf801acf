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

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriter_AddsServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("search-service", "info", &buf)

	l.Info("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "search-service", entry["service"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("search-service", "warn", &buf)

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestWithContext_AddsCorrelationAndCaller(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("search-service", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "corr-1")
	ctx = WithCaller(ctx, "catalog-api")

	WithContext(ctx, base).Info("indexed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "corr-1", entry["correlation_id"])
	assert.Equal(t, "catalog-api", entry["caller"])
	assert.NotContains(t, entry, "trace_id")
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, l, FromContext(NewContext(context.Background(), l)))
}
