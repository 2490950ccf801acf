package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/catalog/postgres"
	"github.com/ammadakrram/storefront-search/internal/catalog/remote"
	"github.com/ammadakrram/storefront-search/internal/catalog/sqlite"
	"github.com/ammadakrram/storefront-search/internal/config"
	"github.com/ammadakrram/storefront-search/internal/engine"
	"github.com/ammadakrram/storefront-search/internal/engine/bleve"
	esengine "github.com/ammadakrram/storefront-search/internal/engine/elasticsearch"
	"github.com/ammadakrram/storefront-search/internal/engine/memory"
	"github.com/ammadakrram/storefront-search/pkg/database"
)

// Closer releases a dependency on shutdown.
type Closer func() error

func noopCloser() error { return nil }

// NewEngine builds the configured search engine backend.
func NewEngine(cfg *config.Config, logger *slog.Logger) (engine.SearchEngine, Closer, error) {
	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		es := esengine.New(cfg.Elasticsearch(), logger)
		logger.Info("elasticsearch search engine initialized",
			slog.Any("urls", cfg.ElasticsearchURLs),
			slog.String("index", es.IndexName()),
		)
		return es, noopCloser, nil
	case config.EngineBleve:
		b := bleve.New(cfg.BlevePath, logger)
		logger.Info("bleve search engine initialized", slog.String("path", cfg.BlevePath))
		return b, b.Close, nil
	case config.EngineMemory:
		logger.Info("in-memory search engine initialized")
		return memory.New(), noopCloser, nil
	default:
		return nil, nil, fmt.Errorf("unknown search engine %q", cfg.SearchEngine)
	}
}

// NewCatalog builds the configured catalog source. It returns a nil source
// when reindexing is disabled.
func NewCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (catalog.Source, Closer, error) {
	switch cfg.CatalogSource {
	case config.CatalogPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect catalog database: %w", err)
		}
		if err := database.RegisterPoolMetrics(pool, "search"); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		logger.Info("postgres catalog source initialized",
			slog.String("db", cfg.PostgresDB),
			slog.String("table", cfg.ProductsTable),
		)
		return postgres.New(pool, cfg.ProductsTable, logger), func() error {
			pool.Close()
			return nil
		}, nil
	case config.CatalogSQLite:
		src, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite catalog: %w", err)
		}
		logger.Info("sqlite catalog source initialized", slog.String("path", cfg.SQLitePath))
		return src, src.Close, nil
	case config.CatalogRemote:
		logger.Info("remote catalog source initialized", slog.String("url", cfg.ProductServiceURL))
		return remote.NewDefault(cfg.ProductServiceURL, logger), noopCloser, nil
	case config.CatalogNone:
		logger.Info("no catalog source configured, reindexing disabled")
		return nil, noopCloser, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}
