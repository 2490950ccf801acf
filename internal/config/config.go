// Package config loads the search service settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ammadakrram/storefront-search/internal/engine/elasticsearch"
	"github.com/ammadakrram/storefront-search/internal/service"
	pkgconfig "github.com/ammadakrram/storefront-search/pkg/config"
	"github.com/ammadakrram/storefront-search/pkg/database"
)

// Search engine backends.
const (
	EngineElasticsearch = "elasticsearch"
	EngineBleve         = "bleve"
	EngineMemory        = "memory"
)

// Catalog sources the reindexer reads from. CatalogNone disables reindexing.
const (
	CatalogPostgres = "postgres"
	CatalogSQLite   = "sqlite"
	CatalogRemote   = "remote"
	CatalogNone     = "none"
)

// Idempotency stores for event consumers.
const (
	IdempotencyMemory = "memory"
	IdempotencyRedis  = "redis"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SEARCH_HTTP_PORT" envDefault:"8010"`

	// Search engine selection
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`

	// Elasticsearch
	ElasticsearchURLs     []string `env:"ELASTICSEARCH_URLS" envDefault:"http://localhost:9200" envSeparator:","`
	ElasticsearchIndex    string   `env:"ELASTICSEARCH_INDEX" envDefault:"products"`
	ElasticsearchUser     string   `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string   `env:"ELASTICSEARCH_PASSWORD"`
	ElasticCloudID        string   `env:"ELASTIC_CLOUD_ID"`
	ElasticsearchAPIKey   string   `env:"ELASTICSEARCH_API_KEY"`

	// Embedded index; empty keeps it in memory.
	BlevePath string `env:"BLEVE_PATH" envDefault:"data/products.bleve"`

	// Result limits
	DefaultPageSize     int `env:"SEARCH_DEFAULT_PAGE_SIZE" envDefault:"9"`
	MaxPageSize         int `env:"SEARCH_MAX_PAGE_SIZE" envDefault:"100"`
	DefaultSuggestLimit int `env:"SUGGEST_DEFAULT_LIMIT" envDefault:"5"`
	MaxSuggestLimit     int `env:"SUGGEST_MAX_LIMIT" envDefault:"20"`
	MaxResultWindow     int `env:"SEARCH_MAX_RESULT_WINDOW" envDefault:"10000"`

	// Reindexing
	ReindexBatchSize int    `env:"REINDEX_BATCH_SIZE" envDefault:"500"`
	CatalogSource    string `env:"CATALOG_SOURCE" envDefault:"postgres"`

	// PostgreSQL catalog
	PostgresHost  string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort  int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser  string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPass  string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB    string `env:"CATALOG_DB_NAME" envDefault:"shop_co"`
	PostgresSSL   string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	ProductsTable string `env:"CATALOG_PRODUCTS_TABLE" envDefault:"Products"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"5"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// SQLite catalog
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/catalog.db"`

	// Product service, for the remote catalog
	ProductServiceURL string `env:"PRODUCT_SERVICE_URL" envDefault:"http://localhost:8080"`

	// Kafka
	KafkaEnabled    bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID    string   `env:"KAFKA_GROUP_ID" envDefault:"search-indexer"`
	KafkaDLQEnabled bool     `env:"KAFKA_DLQ_ENABLED" envDefault:"true"`

	// Event deduplication
	IdempotencyStore string        `env:"IDEMPOTENCY_STORE" envDefault:"memory"`
	IdempotencyTTL   time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// HTTP surface
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	InternalAPIToken   string   `env:"INTERNAL_API_TOKEN"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofEnabled      bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects settings the service cannot start with.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.SearchEngine {
	case EngineElasticsearch:
		if len(c.ElasticsearchURLs) == 0 && c.ElasticCloudID == "" {
			return fmt.Errorf("ELASTICSEARCH_URLS or ELASTIC_CLOUD_ID is required")
		}
	case EngineBleve, EngineMemory:
	default:
		return fmt.Errorf("SEARCH_ENGINE must be one of elasticsearch, bleve, memory, got %q", c.SearchEngine)
	}

	switch c.CatalogSource {
	case CatalogPostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	case CatalogSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	case CatalogRemote:
		if _, err := url.ParseRequestURI(c.ProductServiceURL); err != nil {
			return fmt.Errorf("PRODUCT_SERVICE_URL is not a valid URL: %w", err)
		}
	case CatalogNone:
	default:
		return fmt.Errorf("CATALOG_SOURCE must be one of postgres, sqlite, remote, none, got %q", c.CatalogSource)
	}

	if c.DefaultPageSize < 1 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("page sizes must satisfy 1 <= default (%d) <= max (%d)", c.DefaultPageSize, c.MaxPageSize)
	}
	if c.MaxResultWindow < c.MaxPageSize {
		return fmt.Errorf("SEARCH_MAX_RESULT_WINDOW (%d) must be at least SEARCH_MAX_PAGE_SIZE (%d)", c.MaxResultWindow, c.MaxPageSize)
	}
	if c.DefaultSuggestLimit < 1 || c.MaxSuggestLimit < c.DefaultSuggestLimit {
		return fmt.Errorf("suggest limits must satisfy 1 <= default (%d) <= max (%d)", c.DefaultSuggestLimit, c.MaxSuggestLimit)
	}
	if c.ReindexBatchSize < 1 {
		return fmt.Errorf("REINDEX_BATCH_SIZE must be positive, got %d", c.ReindexBatchSize)
	}

	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	switch c.IdempotencyStore {
	case IdempotencyMemory, IdempotencyRedis:
	default:
		return fmt.Errorf("IDEMPOTENCY_STORE must be memory or redis, got %q", c.IdempotencyStore)
	}

	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Elasticsearch returns the cluster settings.
func (c *Config) Elasticsearch() elasticsearch.Config {
	return elasticsearch.Config{
		Addresses: c.ElasticsearchURLs,
		CloudID:   c.ElasticCloudID,
		Username:  c.ElasticsearchUser,
		Password:  c.ElasticsearchPassword,
		APIKey:    c.ElasticsearchAPIKey,
		Index:     c.ElasticsearchIndex,
	}
}

// Postgres returns the catalog database settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the idempotency store settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Limits returns the result size bounds.
func (c *Config) Limits() service.Limits {
	return service.Limits{
		DefaultPageSize:     c.DefaultPageSize,
		MaxPageSize:         c.MaxPageSize,
		DefaultSuggestLimit: c.DefaultSuggestLimit,
		MaxSuggestLimit:     c.MaxSuggestLimit,
		MaxResultWindow:     c.MaxResultWindow,
	}
}
