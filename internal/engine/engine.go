// Package engine defines the search index contract shared by the
// Elasticsearch, bleve and in-memory backends.
package engine

import (
	"context"

	"github.com/ammadakrram/storefront-search/internal/domain"
)

// SearchEngine is a product index. Every write is visible to the next read
// once it returns.
type SearchEngine interface {
	// EnsureIndex creates the index with the fixed mapping if it is absent.
	// An existing index is left untouched.
	EnsureIndex(ctx context.Context) error

	// DeleteIndex drops the index. A missing index is not an error.
	DeleteIndex(ctx context.Context) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Upsert stores doc under doc.ID, replacing any previous version.
	Upsert(ctx context.Context, doc domain.Document) error

	// Update merges fields into the existing document id. It returns
	// ErrDocumentMissing when there is nothing to update.
	Update(ctx context.Context, id string, fields map[string]any) error

	// Remove deletes document id. A missing document is not an error.
	Remove(ctx context.Context, id string) error

	// Bulk upserts docs in one request. The outcomes line up with docs by
	// position. The error is non-nil only when the request as a whole failed.
	Bulk(ctx context.Context, docs []domain.Document) ([]BulkOutcome, error)

	// Search runs a normalized request.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchPage, error)

	// Suggest returns up to limit in-stock name matches for prefix.
	Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error)

	// Aggregate computes facets over the in-stock documents matching query.
	Aggregate(ctx context.Context, query string) (*domain.Facets, error)
}

// BulkOutcome is the per-document result of a Bulk call.
type BulkOutcome struct {
	ID     string
	Status int
	Error  string
}

// OK reports whether the document was stored.
func (o BulkOutcome) OK() bool {
	return o.Error == "" && o.Status < 300
}
