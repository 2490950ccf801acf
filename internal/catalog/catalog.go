// Package catalog reads products from the storefront catalog, the system of
// record the search index is rebuilt from.
package catalog

import (
	"context"
	"errors"

	"github.com/ammadakrram/storefront-search/internal/domain"
)

// Source streams the whole catalog in batches.
type Source interface {
	// Scan calls fn with consecutive batches of at most batchSize products
	// in a stable order until the catalog is exhausted. An error from fn
	// stops the scan and is returned as is.
	Scan(ctx context.Context, batchSize int, fn func([]domain.Product) error) error

	// Ping reports whether the catalog can be read.
	Ping(ctx context.Context) error
}

// ErrInvalidBatchSize is returned by Scan for a non-positive batch size.
var ErrInvalidBatchSize = errors.New("batch size must be positive")

// StaticSource serves a fixed product list. It backs local runs with the
// in-memory engine and tests.
type StaticSource struct {
	products []domain.Product
	err      error
}

// NewStaticSource returns a source over products.
func NewStaticSource(products []domain.Product) *StaticSource {
	return &StaticSource{products: products}
}

// FailWith makes Scan and Ping return err.
func (s *StaticSource) FailWith(err error) {
	s.err = err
}

// Scan implements Source.
func (s *StaticSource) Scan(ctx context.Context, batchSize int, fn func([]domain.Product) error) error {
	if batchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if s.err != nil {
		return s.err
	}
	for start := 0; start < len(s.products); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(s.products))
		batch := make([]domain.Product, end-start)
		copy(batch, s.products[start:end])
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

// Ping implements Source.
func (s *StaticSource) Ping(_ context.Context) error {
	return s.err
}
