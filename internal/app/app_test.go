package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammadakrram/storefront-search/internal/catalog/remote"
	"github.com/ammadakrram/storefront-search/internal/catalog/sqlite"
	"github.com/ammadakrram/storefront-search/internal/config"
	"github.com/ammadakrram/storefront-search/internal/engine/bleve"
	"github.com/ammadakrram/storefront-search/internal/engine/elasticsearch"
	"github.com/ammadakrram/storefront-search/internal/engine/memory"
	handler "github.com/ammadakrram/storefront-search/internal/handler/http"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("SEARCH_ENGINE", config.EngineMemory)
	t.Setenv("CATALOG_SOURCE", config.CatalogSQLite)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "catalog.db"))
	t.Setenv("INTERNAL_API_TOKEN", "token")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		engine string
		want   any
	}{
		{config.EngineElasticsearch, &elasticsearch.Engine{}},
		{config.EngineBleve, &bleve.Engine{}},
		{config.EngineMemory, &memory.Engine{}},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			cfg := &config.Config{SearchEngine: tt.engine}
			eng, closeFn, err := NewEngine(cfg, discard())
			require.NoError(t, err)
			assert.IsType(t, tt.want, eng)
			assert.NoError(t, closeFn())
		})
	}

	_, _, err := NewEngine(&config.Config{SearchEngine: "solr"}, discard())
	assert.Error(t, err)
}

func TestNewCatalog(t *testing.T) {
	ctx := context.Background()

	src, closeFn, err := NewCatalog(ctx, &config.Config{
		CatalogSource: config.CatalogSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "catalog.db"),
	}, discard())
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Source{}, src)
	assert.NoError(t, src.Ping(ctx))
	assert.NoError(t, closeFn())

	src, _, err = NewCatalog(ctx, &config.Config{
		CatalogSource:     config.CatalogRemote,
		ProductServiceURL: "http://catalog.internal:8080",
	}, discard())
	require.NoError(t, err)
	assert.IsType(t, &remote.Source{}, src)

	src, _, err = NewCatalog(ctx, &config.Config{CatalogSource: config.CatalogNone}, discard())
	require.NoError(t, err)
	assert.Nil(t, src)

	_, _, err = NewCatalog(ctx, &config.Config{CatalogSource: "csv"}, discard())
	assert.Error(t, err)
}

func TestNewApp_ServesRoutes(t *testing.T) {
	a, err := NewApp(context.Background(), localConfig(t), discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.closeAll() })

	require.NotNil(t, a.runner)
	// A router timeout must be written before the server drops the connection.
	assert.Greater(t, a.httpServer.WriteTimeout, handler.RequestTimeout)
	assert.Less(t, a.httpServer.WriteTimeout, handler.RequestTimeout+10*time.Second)
	require.NoError(t, a.engine.EnsureIndex(context.Background()))

	srv := a.httpServer.Handler
	for _, target := range []string{"/health/live", "/health/ready", "/api/v1/search?q=tee", "/api/v1/search/filters"} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusOK, w.Code, target)
	}

	// Internal routes carry the configured token.
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/search/reindex", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/reindex", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer token")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	a.runner.Wait()
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Setenv("SEARCH_HTTP_PORT", "18471")
	a, err := NewApp(context.Background(), localConfig(t), discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	assert.NoError(t, <-done)
	assert.True(t, a.engine.(*memory.Engine).Exists())
}
