// Package reindex rebuilds the search index from the catalog.
package reindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
	"github.com/ammadakrram/storefront-search/internal/projector"
	pkgkafka "github.com/ammadakrram/storefront-search/pkg/kafka"
)

// DefaultBatchSize is the number of products sent per bulk request.
const DefaultBatchSize = 500

// Status summarises a run. A run that finishes with rejected documents is
// partial even when nothing was indexed; failed means it was aborted.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Failure is a document the engine rejected.
type Failure struct {
	ID       string          `json:"id"`
	Status   int             `json:"status"`
	Reason   string          `json:"reason"`
	Document domain.Document `json:"document"`
}

// Report describes one run. It is returned even when the run aborts.
type Report struct {
	Status    Status        `json:"status"`
	Total     int           `json:"total"`
	Indexed   int           `json:"indexed"`
	Failed    int           `json:"failed"`
	Batches   int           `json:"batches"`
	Failures  []Failure     `json:"failures"`
	Recreated bool          `json:"recreated"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Error     string        `json:"error,omitempty"`
}

// Publisher announces finished runs. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// TopicReindexed receives a summary of every finished run.
var TopicReindexed = pkgkafka.Topic("search", "reindexed")

// Config tunes a Reindexer.
type Config struct {
	BatchSize int
	// Recreate drops the index before rebuilding it, which also prunes
	// documents whose products no longer exist.
	Recreate bool
}

// Reindexer streams the catalog into the engine in bulk batches.
type Reindexer struct {
	engine    engine.SearchEngine
	source    catalog.Source
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Reindexer. A non-positive batch size means DefaultBatchSize.
func New(eng engine.SearchEngine, src catalog.Source, cfg Config, logger *slog.Logger) *Reindexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Reindexer{
		engine: eng,
		source: src,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithPublisher makes the reindexer announce finished runs on p.
func (r *Reindexer) WithPublisher(p Publisher) *Reindexer {
	r.publisher = p
	return r
}

// ReindexAll provisions the index and upserts every catalog product.
// Rejected documents are collected in the report and never abort the run.
// A provisioning, catalog or transport failure aborts it and is returned
// together with the partial report.
func (r *Reindexer) ReindexAll(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: r.now().UTC(), Failures: []Failure{}, Recreated: r.cfg.Recreate}
	r.logger.InfoContext(ctx, "reindex started",
		slog.Int("batch_size", r.cfg.BatchSize),
		slog.Bool("recreate", r.cfg.Recreate),
	)

	err := r.run(ctx, report)
	r.finish(ctx, report, err)
	return report, err
}

func (r *Reindexer) run(ctx context.Context, report *Report) error {
	if r.cfg.Recreate {
		if err := r.engine.DeleteIndex(ctx); err != nil {
			return fmt.Errorf("reindex: delete index: %w", err)
		}
	}
	if err := r.engine.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}

	err := r.source.Scan(ctx, r.cfg.BatchSize, func(products []domain.Product) error {
		return r.indexBatch(ctx, report, products)
	})
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	return nil
}

func (r *Reindexer) indexBatch(ctx context.Context, report *Report, products []domain.Product) error {
	docs := projector.ProjectAll(products)
	report.Batches++
	report.Total += len(docs)

	outcomes, err := r.engine.Bulk(ctx, docs)
	if err != nil {
		return fmt.Errorf("bulk batch %d: %w", report.Batches, err)
	}
	if len(outcomes) != len(docs) {
		return fmt.Errorf("bulk batch %d: %d outcomes for %d documents", report.Batches, len(outcomes), len(docs))
	}

	failed := 0
	for i, o := range outcomes {
		if o.OK() {
			report.Indexed++
			continue
		}
		failed++
		report.Failures = append(report.Failures, Failure{
			ID:       docs[i].ID,
			Status:   o.Status,
			Reason:   o.Error,
			Document: docs[i],
		})
	}
	report.Failed += failed
	documentsTotal.WithLabelValues("indexed").Add(float64(len(docs) - failed))
	documentsTotal.WithLabelValues("failed").Add(float64(failed))

	r.logger.DebugContext(ctx, "reindex batch done",
		slog.Int("batch", report.Batches),
		slog.Int("documents", len(docs)),
		slog.Int("failed", failed),
	)
	return nil
}

func (r *Reindexer) finish(ctx context.Context, report *Report, err error) {
	report.Duration = r.now().Sub(report.StartedAt)
	switch {
	case err != nil:
		report.Status = StatusFailed
		report.Error = err.Error()
	case report.Failed == 0:
		report.Status = StatusSuccess
	default:
		report.Status = StatusPartial
	}

	runsTotal.WithLabelValues(string(report.Status)).Inc()
	runDuration.Observe(report.Duration.Seconds())

	attrs := []any{
		slog.String("status", string(report.Status)),
		slog.Int("total", report.Total),
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", report.Failed),
		slog.Int("batches", report.Batches),
		slog.Duration("duration", report.Duration),
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "reindex aborted", append(attrs, slog.String("error", err.Error()))...)
	} else if report.Failed > 0 {
		for _, f := range report.Failures {
			r.logger.WarnContext(ctx, "document rejected by search engine",
				slog.String("product_id", f.ID),
				slog.Int("status", f.Status),
				slog.String("reason", f.Reason),
			)
		}
		r.logger.WarnContext(ctx, "reindex completed with failures", attrs...)
	} else {
		r.logger.InfoContext(ctx, "reindex completed", attrs...)
	}

	r.publish(ctx, report)
}

// summary is the payload of the reindexed event.
type summary struct {
	Status    Status    `json:"status"`
	Total     int       `json:"total"`
	Indexed   int       `json:"indexed"`
	Failed    int       `json:"failed"`
	Recreated bool      `json:"recreated"`
	StartedAt time.Time `json:"started_at"`
	TookMs    int64     `json:"took_ms"`
	FailedIDs []string  `json:"failed_ids,omitempty"`
}

func (r *Reindexer) publish(ctx context.Context, report *Report) {
	if r.publisher == nil {
		return
	}

	s := summary{
		Status:    report.Status,
		Total:     report.Total,
		Indexed:   report.Indexed,
		Failed:    report.Failed,
		Recreated: report.Recreated,
		StartedAt: report.StartedAt,
		TookMs:    report.Duration.Milliseconds(),
	}
	for _, f := range report.Failures {
		s.FailedIDs = append(s.FailedIDs, f.ID)
	}

	event, err := pkgkafka.NewEvent(TopicReindexed, "products", "search_index", "search-service", s)
	if err == nil {
		err = r.publisher.Publish(ctx, TopicReindexed, event)
	}
	if err != nil {
		r.logger.WarnContext(ctx, "failed to publish reindex event", slog.String("error", err.Error()))
	}
}
