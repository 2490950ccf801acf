// Package memory is an in-process SearchEngine used by tests and local runs.
// It reproduces the ranking, filtering and faceting rules of the
// Elasticsearch backend without any external dependency.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
	"github.com/ammadakrram/storefront-search/internal/projector"
)

// Engine keeps documents in a map guarded by a RWMutex.
type Engine struct {
	mu      sync.RWMutex
	exists  bool
	docs    map[string]domain.Document
	pingErr error
}

// New returns an engine whose index does not exist yet.
func New() *Engine {
	return &Engine{docs: make(map[string]domain.Document)}
}

// SetPingError makes Ping and every read or write fail with
// engine.ErrUnavailable wrapping err. A nil err restores service.
func (e *Engine) SetPingError(err error) {
	e.mu.Lock()
	e.pingErr = err
	e.mu.Unlock()
}

func (e *Engine) unavailable(op string) error {
	if e.pingErr != nil {
		return engine.Unavailable("memory "+op, e.pingErr)
	}
	return nil
}

// EnsureIndex marks the index as present. Existing documents are kept.
func (e *Engine) EnsureIndex(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.unavailable("ensure index"); err != nil {
		return &engine.IndexProvisionError{Index: "memory", Err: err}
	}
	e.exists = true
	return nil
}

// DeleteIndex drops every document and the index itself.
func (e *Engine) DeleteIndex(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.unavailable("delete index"); err != nil {
		return err
	}
	e.exists = false
	e.docs = make(map[string]domain.Document)
	return nil
}

// Exists reports whether EnsureIndex has run since the last DeleteIndex.
func (e *Engine) Exists() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.exists
}

// Ping fails only when a ping error has been injected.
func (e *Engine) Ping(_ context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.unavailable("ping")
}

// Upsert stores doc, implicitly creating the index like a dynamic cluster would.
func (e *Engine) Upsert(_ context.Context, doc domain.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.unavailable("upsert"); err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("memory upsert: empty document id")
	}
	e.exists = true
	e.docs[doc.ID] = doc
	return nil
}

// Update merges fields into an existing document.
func (e *Engine) Update(_ context.Context, id string, fields map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.unavailable("update"); err != nil {
		return err
	}

	current, ok := e.docs[id]
	if !ok {
		return fmt.Errorf("memory update %s: %w", id, engine.ErrDocumentMissing)
	}
	merged, err := projector.Merge(current, fields)
	if err != nil {
		return fmt.Errorf("memory update: %w", err)
	}
	e.docs[id] = merged
	return nil
}

// Remove deletes a document; absent documents are ignored.
func (e *Engine) Remove(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.unavailable("remove"); err != nil {
		return err
	}
	delete(e.docs, id)
	return nil
}

// Bulk upserts docs, rejecting documents without an ID individually.
func (e *Engine) Bulk(_ context.Context, docs []domain.Document) ([]engine.BulkOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.unavailable("bulk"); err != nil {
		return nil, err
	}

	e.exists = true
	outcomes := make([]engine.BulkOutcome, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			outcomes[i] = engine.BulkOutcome{Status: http.StatusBadRequest, Error: "document id is required"}
			continue
		}
		_, replaced := e.docs[doc.ID]
		e.docs[doc.ID] = doc
		status := http.StatusCreated
		if replaced {
			status = http.StatusOK
		}
		outcomes[i] = engine.BulkOutcome{ID: doc.ID, Status: status}
	}
	return outcomes, nil
}

// Len returns the number of stored documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Get returns a stored document.
func (e *Engine) Get(id string) (domain.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.docs[id]
	return d, ok
}

type scored struct {
	doc   domain.Document
	score float64
}

// match applies the full-text clause and the in-stock filter. With an empty
// query every in-stock document matches with score 0.
func (e *Engine) match(query string) []scored {
	terms := engine.Terms(query)
	out := make([]scored, 0, len(e.docs))
	for _, d := range e.docs {
		if !d.InStock() {
			continue
		}
		if len(terms) == 0 {
			out = append(out, scored{doc: d})
			continue
		}
		nameTokens := engine.Terms(d.Name)
		descTokens := engine.Terms(d.Description)
		name := nameBoost * fieldScore(terms, func(t string) float64 { return nameTermScore(t, nameTokens) })
		desc := descriptionBoost * fieldScore(terms, func(t string) float64 { return wordTermScore(t, descTokens) })
		if s := max(name, desc); s > 0 {
			out = append(out, scored{doc: d, score: s})
		}
	}
	return out
}

func passesFilters(d domain.Document, req domain.SearchRequest) bool {
	if req.Category != nil && d.Category != *req.Category {
		return false
	}
	if req.DressStyle != nil && d.DressStyle != *req.DressStyle {
		return false
	}
	if req.MinPrice != nil && d.Price < *req.MinPrice {
		return false
	}
	if req.MaxPrice != nil && d.Price > *req.MaxPrice {
		return false
	}
	if len(req.Colors) > 0 && !anyOf(d.Colors, req.Colors) {
		return false
	}
	if len(req.Sizes) > 0 && !anyOf(d.Sizes, req.Sizes) {
		return false
	}
	return true
}

// anyOf reports whether values and wanted share an element (terms semantics).
func anyOf(values, wanted []string) bool {
	for _, v := range values {
		for _, w := range wanted {
			if v == w {
				return true
			}
		}
	}
	return false
}

// Search filters, ranks and pages the stored documents.
func (e *Engine) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchPage, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.unavailable("search"); err != nil {
		return nil, err
	}

	hits := e.match(req.Query)
	filtered := hits[:0]
	for _, h := range hits {
		if passesFilters(h.doc, req) {
			filtered = append(filtered, h)
		}
	}
	sortHits(filtered, req.Sort, req.Query != "")

	total := len(filtered)
	from := min(max(req.Offset(), 0), total)
	to := min(from+req.PageSize, total)

	withScore := req.Query != "" && req.Sort == domain.SortRelevance
	products := make([]domain.ProductHit, 0, to-from)
	for _, h := range filtered[from:to] {
		hit := domain.ProductHit{Document: h.doc}
		if withScore {
			s := h.score
			hit.Score = &s
		}
		products = append(products, hit)
	}

	return &domain.SearchPage{
		Products: products,
		Total:    total,
		Page:     req.Page,
		Limit:    req.PageSize,
		TookMs:   time.Since(start).Milliseconds(),
	}, nil
}

// sortHits orders hits; every ordering falls back to id so pages are stable.
func sortHits(hits []scored, mode domain.SortMode, hasQuery bool) {
	var less func(a, b scored) (bool, bool)
	switch mode {
	case domain.SortPriceAsc:
		less = func(a, b scored) (bool, bool) { return a.doc.Price < b.doc.Price, a.doc.Price != b.doc.Price }
	case domain.SortPriceDesc:
		less = func(a, b scored) (bool, bool) { return a.doc.Price > b.doc.Price, a.doc.Price != b.doc.Price }
	case domain.SortRating:
		less = func(a, b scored) (bool, bool) { return a.doc.Rating > b.doc.Rating, a.doc.Rating != b.doc.Rating }
	case domain.SortNewest:
		less = newestFirst
	default:
		if hasQuery {
			less = func(a, b scored) (bool, bool) { return a.score > b.score, a.score != b.score }
		} else {
			less = newestFirst
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if l, decided := less(hits[i], hits[j]); decided {
			return l
		}
		return hits[i].doc.ID < hits[j].doc.ID
	})
}

func newestFirst(a, b scored) (bool, bool) {
	return a.doc.CreatedAt.After(b.doc.CreatedAt), !a.doc.CreatedAt.Equal(b.doc.CreatedAt)
}

// Suggest ranks in-stock documents by how well their name matches prefix.
func (e *Engine) Suggest(_ context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.unavailable("suggest"); err != nil {
		return nil, err
	}

	terms := engine.Terms(prefix)
	hits := make([]scored, 0)
	for _, d := range e.docs {
		if !d.InStock() {
			continue
		}
		nameTokens := engine.Terms(d.Name)
		if s := fieldScore(terms, func(t string) float64 { return nameTermScore(t, nameTokens) }); s > 0 {
			hits = append(hits, scored{doc: d, score: s})
		}
	}
	sortHits(hits, domain.SortRelevance, true)

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Suggestion, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.Suggestion{
			ID:    h.doc.ID,
			Name:  h.doc.Name,
			Price: h.doc.Price,
			Image: h.doc.FirstImage(),
		})
	}
	return out, nil
}

// Aggregate buckets the documents matching query.
func (e *Engine) Aggregate(_ context.Context, query string) (*domain.Facets, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.unavailable("aggregate"); err != nil {
		return nil, err
	}

	hits := e.match(query)
	categories := map[string]int{}
	colors := map[string]int{}
	sizes := map[string]int{}
	styles := map[string]int{}
	var stats domain.PriceStats
	sum := 0.0

	for _, h := range hits {
		d := h.doc
		if d.Category != "" {
			categories[d.Category]++
		}
		if d.DressStyle != "" {
			styles[d.DressStyle]++
		}
		countDistinct(colors, d.Colors)
		countDistinct(sizes, d.Sizes)

		p := d.Price
		if stats.Min == nil || p < *stats.Min {
			stats.Min = &p
		}
		if stats.Max == nil || p > *stats.Max {
			stats.Max = &p
		}
		sum += p
	}
	if len(hits) > 0 {
		avg := sum / float64(len(hits))
		stats.Avg = &avg
	}

	return &domain.Facets{
		Categories:  buckets(categories, domain.CategoryBucketLimit),
		Colors:      buckets(colors, domain.ColorBucketLimit),
		Sizes:       buckets(sizes, domain.SizeBucketLimit),
		DressStyles: buckets(styles, domain.DressStyleBucketLimit),
		PriceRange:  stats,
	}, nil
}

// countDistinct counts each value once per document.
func countDistinct(counts map[string]int, values []string) {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		counts[v]++
	}
}

// buckets orders counts by count desc then value asc and keeps the first limit.
func buckets(counts map[string]int, limit int) []domain.Bucket {
	out := make([]domain.Bucket, 0, len(counts))
	for v, c := range counts {
		out = append(out, domain.Bucket{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ engine.SearchEngine = (*Engine)(nil)
