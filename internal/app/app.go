// Package app wires the search service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ammadakrram/storefront-search/internal/config"
	"github.com/ammadakrram/storefront-search/internal/engine"
	"github.com/ammadakrram/storefront-search/internal/event"
	handler "github.com/ammadakrram/storefront-search/internal/handler/http"
	"github.com/ammadakrram/storefront-search/internal/indexsync"
	"github.com/ammadakrram/storefront-search/internal/reindex"
	"github.com/ammadakrram/storefront-search/internal/service"
	"github.com/ammadakrram/storefront-search/pkg/database"
	"github.com/ammadakrram/storefront-search/pkg/health"
	pkgkafka "github.com/ammadakrram/storefront-search/pkg/kafka"
	"github.com/ammadakrram/storefront-search/pkg/tracing"
)

// Version is reported in traces. It is overridden at link time.
var Version = "dev"

// App wires together all dependencies and runs the search service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	engine     engine.SearchEngine
	consumers  []*pkgkafka.Consumer
	runner     *reindex.Runner
	httpServer *http.Server

	// stop ends background reindex runs.
	stop    context.CancelFunc
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close Closer
}

// NewApp creates a new application instance, initializing all dependencies.
// On error, anything already opened is released.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.closeAll()
		}
	}()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    "search",
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.addCloser("tracing", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(shutdownCtx)
	})

	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)

	eng, closeEngine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.engine = eng
	a.addCloser("search engine", closeEngine)

	source, closeCatalog, err := NewCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.addCloser("catalog", closeCatalog)

	// Build the service layer.
	searchService := service.NewSearchService(eng, cfg.Limits(), logger)
	gateway := indexsync.NewGateway(eng, logger)
	hooks := indexsync.NewHooks(gateway, logger)

	healthHandler := health.NewHandler()
	healthHandler.RegisterOptional(cfg.SearchEngine, eng.Ping)

	var producer *pkgkafka.Producer
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.addCloser("kafka producer", producer.Close)

		if err := a.initConsumers(ctx, hooks); err != nil {
			return nil, err
		}
		healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	if source != nil {
		reindexer := reindex.New(eng, source, reindex.Config{BatchSize: cfg.ReindexBatchSize}, logger)
		if producer != nil {
			reindexer = reindexer.WithPublisher(producer)
		}
		base, stop := context.WithCancel(context.Background())
		a.stop = stop
		a.runner = reindex.NewRunner(base, reindexer, logger)
		healthHandler.RegisterOptional("catalog", source.Ping)
	}

	router := handler.NewRouter(handler.RouterConfig{
		CORSOrigins:  cfg.CORSAllowedOrigins,
		ServiceToken: cfg.InternalAPIToken,
		PprofCIDRs:   a.pprofCIDRs(),
	}, searchService, gateway, a.runner, healthHandler, logger)

	if cfg.InternalAPIToken == "" {
		logger.Warn("INTERNAL_API_TOKEN is not set, internal index routes are unauthenticated")
	}

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: handler.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

// initConsumers subscribes the index hooks to product events, deduplicated
// by event id and dead-lettered after the consumer's retries.
func (a *App) initConsumers(ctx context.Context, hooks *indexsync.Hooks) error {
	cfg := a.cfg

	var store pkgkafka.IdempotencyStore
	switch cfg.IdempotencyStore {
	case config.IdempotencyRedis:
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return fmt.Errorf("connect idempotency redis: %w", err)
		}
		a.addCloser("redis", client.Close)
		store = pkgkafka.NewRedisIdempotencyStore(client, "search:events:", cfg.IdempotencyTTL)
		a.logger.Info("redis idempotency store initialized", slog.String("addr", cfg.Redis().Addr()))
	default:
		store = pkgkafka.NewMemoryIdempotencyStore(cfg.IdempotencyTTL)
	}

	var dlq *pkgkafka.DLQProducer
	if cfg.KafkaDLQEnabled {
		dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, a.logger)
		a.addCloser("kafka dlq", dlq.Close)
	}

	eventConsumer := event.NewConsumer(hooks, a.logger)
	for _, topic := range event.Topics() {
		consumerCfg := pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}
		h := pkgkafka.IdempotentHandler(store, eventConsumer.Handle, topic, cfg.KafkaGroupID, a.logger)
		c := pkgkafka.NewConsumer(consumerCfg, h, a.logger)
		if dlq != nil {
			c = c.WithDeadLetter(dlq)
		}
		a.consumers = append(a.consumers, c)
	}
	a.logger.Info("kafka consumers initialized",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("group", cfg.KafkaGroupID),
		slog.Int("topic_count", len(a.consumers)),
	)
	return nil
}

func (a *App) pprofCIDRs() []string {
	if !a.cfg.PprofEnabled {
		return nil
	}
	return a.cfg.PprofAllowedCIDRs
}

func (a *App) addCloser(name string, c Closer) {
	a.closers = append(a.closers, namedCloser{name: name, close: c})
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	// A missing index is created lazily by the first write; serving starts
	// regardless so readiness can report the engine.
	if err := a.engine.EnsureIndex(ctx); err != nil {
		a.logger.Warn("search index not provisioned at startup", slog.String("error", err.Error()))
	}

	errCh := make(chan error, 1+len(a.consumers))

	// Start Kafka consumers in background goroutines.
	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("kafka consumer %s: %w", c.Topic(), err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Close Kafka consumers.
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// Stop a running reindex before its engine and catalog go away.
	if a.runner != nil {
		a.stop()
		a.runner.Wait()
	}

	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeAll releases dependencies in reverse order of creation.
func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Error("close error", slog.String("dependency", c.name), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
