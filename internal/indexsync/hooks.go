package indexsync

import (
	"context"
	"log/slog"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/projector"
)

// Hooks adapts the gateway to the catalog write path. They never fail the
// caller: a catalog write has already committed by the time a hook runs, so
// index failures are logged and dropped. The bulk reindexer repairs drift.
type Hooks struct {
	gateway *Gateway
	logger  *slog.Logger
}

// NewHooks creates hooks over g.
func NewHooks(g *Gateway, logger *slog.Logger) *Hooks {
	return &Hooks{gateway: g, logger: logger}
}

// AfterCreate indexes a newly created product.
func (h *Hooks) AfterCreate(ctx context.Context, p domain.Product) {
	h.report(ctx, h.gateway.IndexDocument(ctx, p))
}

// AfterUpdate pushes every field of the updated product as a partial
// update. A product the index never saw stays unindexed until the next
// reindex.
func (h *Hooks) AfterUpdate(ctx context.Context, p domain.Product) {
	fields := projector.Fields(projector.Project(p))
	h.report(ctx, h.gateway.UpdateDocument(ctx, p.ID, fields))
}

// AfterDelete removes the product's document.
func (h *Hooks) AfterDelete(ctx context.Context, id string) {
	h.report(ctx, h.gateway.RemoveDocument(ctx, id))
}

func (h *Hooks) report(ctx context.Context, r Result) {
	switch {
	case r.OK():
	case r.Missing():
		h.logger.WarnContext(ctx, "search index drift: document missing, run the bulk reindexer",
			slog.String("op", string(r.Op)),
			slog.String("product_id", r.ID),
		)
	default:
		h.logger.ErrorContext(ctx, "search index sync failed",
			slog.String("op", string(r.Op)),
			slog.String("product_id", r.ID),
			slog.Bool("unavailable", r.Unavailable()),
			slog.String("error", r.Err.Error()),
		)
	}
}
