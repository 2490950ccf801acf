package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, EngineElasticsearch, cfg.SearchEngine)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.ElasticsearchURLs)
	assert.Equal(t, "products", cfg.ElasticsearchIndex)
	assert.Equal(t, CatalogPostgres, cfg.CatalogSource)
	assert.Equal(t, "Products", cfg.ProductsTable)
	assert.Equal(t, 500, cfg.ReindexBatchSize)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.False(t, cfg.KafkaEnabled)

	limits := cfg.Limits()
	assert.Equal(t, 9, limits.DefaultPageSize)
	assert.Equal(t, 100, limits.MaxPageSize)
	assert.Equal(t, 5, limits.DefaultSuggestLimit)
	assert.Equal(t, 20, limits.MaxSuggestLimit)
}

func TestLoad_Overrides(t *testing.T) {
	setEnvs(t, map[string]string{
		"SEARCH_ENGINE":                 "bleve",
		"CATALOG_SOURCE":                "sqlite",
		"SQLITE_PATH":                   "/tmp/catalog.db",
		"ELASTICSEARCH_URLS":            "http://es-1:9200,http://es-2:9200",
		"KAFKA_ENABLED":                 "true",
		"KAFKA_BROKERS":                 "k1:9092,k2:9092",
		"IDEMPOTENCY_STORE":             "redis",
		"IDEMPOTENCY_TTL":               "90m",
		"CORS_ALLOWED_ORIGINS":          "https://shop.example,https://admin.example",
		"SEARCH_MAX_PAGE_SIZE":          "50",
		"DB_MAX_CONN_IDLE_TIME_MINUTES": "10",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, EngineBleve, cfg.SearchEngine)
	assert.Equal(t, CatalogSQLite, cfg.CatalogSource)
	assert.Equal(t, []string{"http://es-1:9200", "http://es-2:9200"}, cfg.Elasticsearch().Addresses)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, IdempotencyRedis, cfg.IdempotencyStore)
	assert.Equal(t, 90*time.Minute, cfg.IdempotencyTTL)
	assert.Len(t, cfg.CORSAllowedOrigins, 2)
	assert.Equal(t, 50, cfg.Limits().MaxPageSize)
	assert.Equal(t, 10*time.Minute, cfg.Postgres().MaxConnIdleTime)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		envs    map[string]string
		wantErr string
	}{
		{"http port", map[string]string{"SEARCH_HTTP_PORT": "0"}, "invalid HTTP port"},
		{"engine", map[string]string{"SEARCH_ENGINE": "solr"}, "SEARCH_ENGINE"},
		{"catalog", map[string]string{"CATALOG_SOURCE": "csv"}, "CATALOG_SOURCE"},
		{"remote url", map[string]string{"CATALOG_SOURCE": "remote", "PRODUCT_SERVICE_URL": "not a url"}, "PRODUCT_SERVICE_URL"},
		{"page sizes", map[string]string{"SEARCH_DEFAULT_PAGE_SIZE": "200"}, "page sizes"},
		{"suggest limits", map[string]string{"SUGGEST_DEFAULT_LIMIT": "0"}, "suggest limits"},
		{"batch size", map[string]string{"REINDEX_BATCH_SIZE": "0"}, "REINDEX_BATCH_SIZE"},
		{"idempotency", map[string]string{"IDEMPOTENCY_STORE": "etcd"}, "IDEMPOTENCY_STORE"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTEL_SAMPLE_RATE"},
		{"bad duration", map[string]string{"IDEMPOTENCY_TTL": "soon"}, "load search config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, tt.envs)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_NoCatalog(t *testing.T) {
	setEnvs(t, map[string]string{"SEARCH_ENGINE": "memory", "CATALOG_SOURCE": "none"})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, CatalogNone, cfg.CatalogSource)
}
