package reindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
	"github.com/ammadakrram/storefront-search/internal/engine/memory"
	pkgkafka "github.com/ammadakrram/storefront-search/pkg/kafka"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func products(n int) []domain.Product {
	base := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	out := make([]domain.Product, n)
	for i := range out {
		out[i] = domain.Product{
			ID:         fmt.Sprintf("p%d", i+1),
			Name:       fmt.Sprintf("Classic Tee %d", i+1),
			Price:      decimal.NewFromFloat(10 + float64(i)),
			Images:     []string{"tee.jpg"},
			Category:   domain.CategoryTShirts,
			Stock:      5,
			Rating:     decimal.RequireFromString("4.2"),
			DressStyle: domain.DressStyleCasual,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
			UpdatedAt:  base,
		}
	}
	return out
}

// flakyEngine fails Bulk from the given call on, or returns short outcome
// lists.
type flakyEngine struct {
	*memory.Engine
	failFrom int
	short    bool
	calls    int
}

func (f *flakyEngine) Bulk(ctx context.Context, docs []domain.Document) ([]engine.BulkOutcome, error) {
	f.calls++
	if f.failFrom > 0 && f.calls >= f.failFrom {
		return nil, engine.Unavailable("bulk", errors.New("connection reset"))
	}
	out, err := f.Engine.Bulk(ctx, docs)
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, err
}

type recordingPublisher struct {
	topic  string
	events []*pkgkafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	p.topic = topic
	p.events = append(p.events, event)
	return p.err
}

func TestReindexAll_Success(t *testing.T) {
	ctx := context.Background()
	eng := memory.New()
	r := New(eng, catalog.NewStaticSource(products(5)), Config{BatchSize: 2}, newTestLogger())

	report, err := r.ReindexAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 5, report.Indexed)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 3, report.Batches)
	assert.Empty(t, report.Failures)
	assert.True(t, eng.Exists())
	assert.Equal(t, 5, eng.Len())

	doc, ok := eng.Get("p3")
	require.True(t, ok)
	assert.Equal(t, 12.0, doc.Price)
}

func TestReindexAll_DefaultBatchSize(t *testing.T) {
	r := New(memory.New(), catalog.NewStaticSource(nil), Config{}, newTestLogger())
	assert.Equal(t, DefaultBatchSize, r.cfg.BatchSize)

	report, err := r.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Zero(t, report.Batches)
}

func TestReindexAll_Idempotent(t *testing.T) {
	ctx := context.Background()
	eng := memory.New()
	r := New(eng, catalog.NewStaticSource(products(4)), Config{BatchSize: 3}, newTestLogger())

	_, err := r.ReindexAll(ctx)
	require.NoError(t, err)
	first := map[string]domain.Document{}
	for _, p := range products(4) {
		first[p.ID], _ = eng.Get(p.ID)
	}

	report, err := r.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Indexed)
	assert.Equal(t, 4, eng.Len())
	for id, doc := range first {
		again, ok := eng.Get(id)
		require.True(t, ok)
		assert.Equal(t, doc, again)
	}
}

func TestReindexAll_PartialFailure(t *testing.T) {
	ps := products(3)
	ps[1].ID = ""
	eng := memory.New()
	r := New(eng, catalog.NewStaticSource(ps), Config{BatchSize: 10}, newTestLogger())

	report, err := r.ReindexAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, report.Status)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 400, report.Failures[0].Status)
	assert.Equal(t, "Classic Tee 2", report.Failures[0].Document.Name)
	assert.NotEmpty(t, report.Failures[0].Reason)
	assert.Equal(t, 2, eng.Len())
}

func TestReindexAll_EveryDocumentRejected(t *testing.T) {
	ps := products(2)
	ps[0].ID, ps[1].ID = "", ""
	r := New(memory.New(), catalog.NewStaticSource(ps), Config{BatchSize: 10}, newTestLogger())

	report, err := r.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, report.Status)
	assert.Zero(t, report.Indexed)
	assert.Equal(t, 2, report.Failed)
	assert.Len(t, report.Failures, 2)
	assert.Empty(t, report.Error)
}

func TestReindexAll_ProvisionFailureIsFatal(t *testing.T) {
	eng := memory.New()
	eng.SetPingError(errors.New("connection refused"))
	r := New(eng, catalog.NewStaticSource(products(2)), Config{}, newTestLogger())

	report, err := r.ReindexAll(context.Background())
	require.Error(t, err)

	var provErr *engine.IndexProvisionError
	assert.ErrorAs(t, err, &provErr)
	assert.True(t, engine.IsUnavailable(err))
	require.NotNil(t, report)
	assert.Equal(t, StatusFailed, report.Status)
	assert.Zero(t, report.Batches)
	assert.NotEmpty(t, report.Error)
}

func TestReindexAll_CatalogFailureIsFatal(t *testing.T) {
	src := catalog.NewStaticSource(products(2))
	src.FailWith(errors.New("relation \"Products\" does not exist"))
	r := New(memory.New(), src, Config{}, newTestLogger())

	report, err := r.ReindexAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Equal(t, StatusFailed, report.Status)
}

func TestReindexAll_TransportFailureKeepsPartialReport(t *testing.T) {
	eng := &flakyEngine{Engine: memory.New(), failFrom: 2}
	r := New(eng, catalog.NewStaticSource(products(5)), Config{BatchSize: 2}, newTestLogger())

	report, err := r.ReindexAll(context.Background())
	require.Error(t, err)
	assert.True(t, engine.IsUnavailable(err))
	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, 2, report.Batches)
}

func TestReindexAll_OutcomeCountMismatch(t *testing.T) {
	eng := &flakyEngine{Engine: memory.New(), short: true}
	r := New(eng, catalog.NewStaticSource(products(3)), Config{BatchSize: 3}, newTestLogger())

	_, err := r.ReindexAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 outcomes for 3 documents")
}

func TestReindexAll_RecreatePrunesStaleDocuments(t *testing.T) {
	ctx := context.Background()
	eng := memory.New()
	require.NoError(t, eng.Upsert(ctx, domain.Document{ID: "stale", Name: "Gone", Stock: 1}))

	_, err := New(eng, catalog.NewStaticSource(products(2)), Config{}, newTestLogger()).ReindexAll(ctx)
	require.NoError(t, err)
	_, ok := eng.Get("stale")
	assert.True(t, ok, "plain reindex only upserts")

	report, err := New(eng, catalog.NewStaticSource(products(2)), Config{Recreate: true}, newTestLogger()).ReindexAll(ctx)
	require.NoError(t, err)
	assert.True(t, report.Recreated)
	_, ok = eng.Get("stale")
	assert.False(t, ok)
	assert.Equal(t, 2, eng.Len())
}

func TestReindexAll_PublishesSummary(t *testing.T) {
	ps := products(2)
	ps[1].ID = ""
	pub := &recordingPublisher{}
	r := New(memory.New(), catalog.NewStaticSource(ps), Config{}, newTestLogger()).WithPublisher(pub)

	_, err := r.ReindexAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ecommerce.search.reindexed", pub.topic)
	require.Len(t, pub.events, 1)

	var got summary
	require.NoError(t, json.Unmarshal(pub.events[0].Data, &got))
	assert.Equal(t, StatusPartial, got.Status)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, []string{""}, got.FailedIDs)
}

func TestReindexAll_PublishFailureDoesNotFailRun(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	r := New(memory.New(), catalog.NewStaticSource(products(1)), Config{}, newTestLogger()).WithPublisher(pub)

	report, err := r.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, report.Status)
}

func TestReport_DurationUsesClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	r := New(memory.New(), catalog.NewStaticSource(products(1)), Config{}, newTestLogger())
	r.now = func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * 3 * time.Second)
	}

	report, err := r.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, start, report.StartedAt)
	assert.Equal(t, 3*time.Second, report.Duration)
}
