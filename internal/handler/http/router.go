// Package http exposes the search API over chi.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ammadakrram/storefront-search/internal/indexsync"
	"github.com/ammadakrram/storefront-search/internal/reindex"
	"github.com/ammadakrram/storefront-search/internal/service"
	"github.com/ammadakrram/storefront-search/pkg/health"
	"github.com/ammadakrram/storefront-search/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "search"

// RequestTimeout bounds a request inside the router. The server's write
// timeout must exceed it so the timeout response reaches the client.
const RequestTimeout = 15 * time.Second

// RouterConfig holds the transport settings of the router.
type RouterConfig struct {
	CORSOrigins  []string
	ServiceToken string
	// PprofCIDRs enables /debug/pprof for the listed networks when non-empty.
	PprofCIDRs []string
}

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	cfg RouterConfig,
	searchService *service.SearchService,
	gateway *indexsync.Gateway,
	runner *reindex.Runner,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.StorefrontCORSConfig(cfg.CORSOrigins)))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	searchHandler := NewSearchHandler(searchService, logger)
	indexHandler := NewIndexHandler(gateway, runner, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)
		r.Get("/autocomplete", searchHandler.Autocomplete)
		r.Get("/filters", searchHandler.Filters)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ServiceToken(cfg.ServiceToken))
			r.Put("/products/{id}", indexHandler.IndexProduct)
			r.Patch("/products/{id}", indexHandler.UpdateProduct)
			r.Delete("/products/{id}", indexHandler.RemoveProduct)
			r.Post("/reindex", indexHandler.StartReindex)
			r.Get("/reindex", indexHandler.ReindexStatus)
		})
	})

	return r
}
