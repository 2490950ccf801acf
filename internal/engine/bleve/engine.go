// Package bleve is an embedded SearchEngine for single-node deployments and
// local development, backed by a bleve index on disk or in memory.
package bleve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
	"github.com/ammadakrram/storefront-search/internal/projector"
)

// Engine wraps a bleve index. The index is opened or created on first use.
//
// Thread safety: all methods are safe for concurrent use. The mutex guards
// the index handle against DeleteIndex and Close.
type Engine struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	index bleve.Index
}

// New returns an engine storing its index at path. An empty path keeps the
// index in memory.
func New(path string, logger *slog.Logger) *Engine {
	return &Engine{path: path, logger: logger}
}

// open returns the index handle, opening or creating it when needed.
func (e *Engine) open() (bleve.Index, error) {
	e.mu.RLock()
	idx := e.index
	e.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index != nil {
		return e.index, nil
	}

	if e.path != "" {
		if _, err := os.Stat(e.path); err == nil {
			idx, err := bleve.Open(e.path)
			if err != nil {
				return nil, engine.Unavailable("bleve open", err)
			}
			e.index = idx
			e.logger.Info("opened existing search index", slog.String("path", e.path))
			return idx, nil
		}
	}

	im, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("bleve mapping: %w", err)
	}
	if e.path == "" {
		idx, err = bleve.NewMemOnly(im)
	} else {
		idx, err = bleve.New(e.path, im)
	}
	if err != nil {
		return nil, engine.Unavailable("bleve create", err)
	}
	e.index = idx
	e.logger.Info("created search index", slog.String("path", e.path))
	return idx, nil
}

// EnsureIndex opens the existing index or creates it with the fixed mapping.
func (e *Engine) EnsureIndex(_ context.Context) error {
	if _, err := e.open(); err != nil {
		return &engine.IndexProvisionError{Index: e.name(), Err: err}
	}
	return nil
}

func (e *Engine) name() string {
	if e.path == "" {
		return "memory"
	}
	return e.path
}

// DeleteIndex closes the index and removes it from disk.
func (e *Engine) DeleteIndex(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index != nil {
		if err := e.index.Close(); err != nil {
			return fmt.Errorf("bleve close: %w", err)
		}
		e.index = nil
	}
	if e.path != "" {
		if err := os.RemoveAll(e.path); err != nil {
			return fmt.Errorf("bleve remove index: %w", err)
		}
	}
	e.logger.Info("search index deleted", slog.String("path", e.path))
	return nil
}

// Close releases the index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.index == nil {
		return nil
	}
	err := e.index.Close()
	e.index = nil
	return err
}

// Ping reports whether the index can be opened.
func (e *Engine) Ping(_ context.Context) error {
	_, err := e.open()
	return err
}

func encode(doc domain.Document) (map[string]interface{}, error) {
	source, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return indexable(doc, source), nil
}

// Upsert indexes doc. bleve writes are visible to the next search.
func (e *Engine) Upsert(_ context.Context, doc domain.Document) error {
	if doc.ID == "" {
		return errors.New("bleve upsert: empty document id")
	}
	idx, err := e.open()
	if err != nil {
		return err
	}
	fields, err := encode(doc)
	if err != nil {
		return fmt.Errorf("bleve upsert %s: %w", doc.ID, err)
	}
	if err := idx.Index(doc.ID, fields); err != nil {
		return fmt.Errorf("bleve upsert %s: %w", doc.ID, err)
	}
	return nil
}

// get loads the stored document id.
func (e *Engine) get(ctx context.Context, idx bleve.Index, id string) (domain.Document, bool, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery([]string{id}), 1, 0, false)
	req.Fields = []string{sourceField}
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return domain.Document{}, false, err
	}
	if len(res.Hits) == 0 {
		return domain.Document{}, false, nil
	}
	doc, err := decodeSource(res.Hits[0].Fields)
	return doc, err == nil, err
}

func decodeSource(fields map[string]interface{}) (domain.Document, error) {
	var doc domain.Document
	raw, ok := fields[sourceField].(string)
	if !ok {
		return doc, errors.New("stored source missing")
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return doc, fmt.Errorf("decode stored source: %w", err)
	}
	return doc, nil
}

// Update merges fields into the stored document.
func (e *Engine) Update(ctx context.Context, id string, fields map[string]any) error {
	idx, err := e.open()
	if err != nil {
		return err
	}
	current, ok, err := e.get(ctx, idx, id)
	if err != nil {
		return fmt.Errorf("bleve update %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("bleve update %s: %w", id, engine.ErrDocumentMissing)
	}
	merged, err := projector.Merge(current, fields)
	if err != nil {
		return fmt.Errorf("bleve update: %w", err)
	}
	return e.Upsert(ctx, merged)
}

// Remove deletes document id; bleve ignores unknown ids.
func (e *Engine) Remove(_ context.Context, id string) error {
	idx, err := e.open()
	if err != nil {
		return err
	}
	if err := idx.Delete(id); err != nil {
		return fmt.Errorf("bleve remove %s: %w", id, err)
	}
	return nil
}

// Bulk indexes docs in one batch. Statuses follow the cluster convention:
// 201 for new documents, 200 for replaced ones.
func (e *Engine) Bulk(_ context.Context, docs []domain.Document) ([]engine.BulkOutcome, error) {
	idx, err := e.open()
	if err != nil {
		return nil, err
	}

	outcomes := make([]engine.BulkOutcome, len(docs))
	batch := idx.NewBatch()
	for i, doc := range docs {
		if doc.ID == "" {
			outcomes[i] = engine.BulkOutcome{Status: http.StatusBadRequest, Error: "document id is required"}
			continue
		}
		fields, err := encode(doc)
		if err == nil {
			err = batch.Index(doc.ID, fields)
		}
		if err != nil {
			outcomes[i] = engine.BulkOutcome{ID: doc.ID, Status: http.StatusBadRequest, Error: err.Error()}
			continue
		}

		status := http.StatusCreated
		if existing, err := idx.Document(doc.ID); err == nil && existing != nil {
			status = http.StatusOK
		}
		outcomes[i] = engine.BulkOutcome{ID: doc.ID, Status: status}
	}

	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			return nil, engine.Unavailable("bleve bulk", err)
		}
	}
	return outcomes, nil
}

var _ engine.SearchEngine = (*Engine)(nil)
