// Package indexsync keeps single documents in the search index in step with
// catalog writes.
package indexsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
	"github.com/ammadakrram/storefront-search/internal/projector"
)

// Op names a single-document index write.
type Op string

const (
	OpIndex  Op = "index"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

// Result is the outcome of one gateway call.
type Result struct {
	Op  Op
	ID  string
	Err error
}

// OK reports whether the write was applied.
func (r Result) OK() bool {
	return r.Err == nil
}

// Missing reports an update of a document the index does not hold.
func (r Result) Missing() bool {
	return errors.Is(r.Err, engine.ErrDocumentMissing)
}

// Unavailable reports that the engine could not be reached.
func (r Result) Unavailable() bool {
	return engine.IsUnavailable(r.Err)
}

func (r Result) label() string {
	switch {
	case r.OK():
		return "ok"
	case r.Missing():
		return "missing"
	case r.Unavailable():
		return "unavailable"
	default:
		return "error"
	}
}

// Gateway applies single-document writes synchronously. Every write is
// refreshed so the next search sees it. There are no retries.
type Gateway struct {
	engine engine.SearchEngine
	logger *slog.Logger
}

// NewGateway creates a gateway over eng.
func NewGateway(eng engine.SearchEngine, logger *slog.Logger) *Gateway {
	return &Gateway{engine: eng, logger: logger}
}

func (g *Gateway) done(ctx context.Context, r Result) Result {
	syncOperations.WithLabelValues(string(r.Op), r.label()).Inc()
	if r.OK() {
		g.logger.DebugContext(ctx, "index document synced",
			slog.String("op", string(r.Op)),
			slog.String("product_id", r.ID),
		)
	}
	return r
}

// IndexDocument upserts the projection of p.
func (g *Gateway) IndexDocument(ctx context.Context, p domain.Product) Result {
	r := Result{Op: OpIndex, ID: p.ID}
	if err := g.engine.Upsert(ctx, projector.Project(p)); err != nil {
		r.Err = fmt.Errorf("index document %s: %w", p.ID, err)
	}
	return g.done(ctx, r)
}

// UpdateDocument merges fields into document id. An absent document is
// reported as Missing and left absent.
func (g *Gateway) UpdateDocument(ctx context.Context, id string, fields map[string]any) Result {
	r := Result{Op: OpUpdate, ID: id}
	if err := g.engine.Update(ctx, id, fields); err != nil {
		r.Err = fmt.Errorf("update document %s: %w", id, err)
	}
	return g.done(ctx, r)
}

// RemoveDocument deletes document id. Removing an absent document succeeds.
func (g *Gateway) RemoveDocument(ctx context.Context, id string) Result {
	r := Result{Op: OpRemove, ID: id}
	if err := g.engine.Remove(ctx, id); err != nil {
		r.Err = fmt.Errorf("remove document %s: %w", id, err)
	}
	return g.done(ctx, r)
}
