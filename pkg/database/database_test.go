package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostgresConfig_DSNEscapesCredentials(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5432, User: "store", Password: "p@ss:word",
		DBName: "storefront", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://store:p%40ss%3Aword@db:5432/storefront?sslmode=disable", cfg.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6379", RedisConfig{Host: "cache", Port: 6379}.Addr())
}

func TestRetryBackoff_WithinJitter(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := retryBackoff(attempt)
		assert.GreaterOrEqual(t, d, base*3/4)
		assert.LessOrEqual(t, d, base*5/4)
	}
}

func TestTraceQuery_SlowQueryLogged(t *testing.T) {
	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "postgresql", "ScanProducts", "SELECT 1")
	time.Sleep(time.Millisecond)
	end(errors.New("boom"))

	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), "ScanProducts")
}

func TestTraceQuery_Disabled(t *testing.T) {
	var buf bytes.Buffer
	SetSlowQueryLogging(0, slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "sqlite", "ScanProducts", "SELECT 1")
	end(nil)

	assert.Zero(t, buf.Len())
}
