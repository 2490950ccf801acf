// Package elasticsearch is the production SearchEngine backed by an
// Elasticsearch 8 cluster.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
)

// Engine talks to the cluster through a client that is created on first use
// and shared by every call afterwards.
type Engine struct {
	cfg       Config
	indexName string
	logger    *slog.Logger

	once      sync.Once
	client    *elasticsearch.Client
	clientErr error
}

// esErrorResponse is the error body returned by the cluster.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New returns an engine for cfg. No connection is made until the first call.
func New(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		indexName: cfg.indexName(),
		logger:    logger,
	}
}

// IndexName is the name of the index this engine reads and writes.
func (e *Engine) IndexName() string {
	return e.indexName
}

func (e *Engine) es() (*elasticsearch.Client, error) {
	e.once.Do(func() {
		e.client, e.clientErr = elasticsearch.NewClient(e.cfg.clientConfig())
		if e.clientErr != nil {
			e.clientErr = fmt.Errorf("elasticsearch: create client: %w", e.clientErr)
		}
	})
	return e.client, e.clientErr
}

// responseError converts a non-2xx response into an error. Server-side
// failures are reported as engine.ErrUnavailable.
func responseError(op string, res *esapi.Response) error {
	var cause error
	var errResp esErrorResponse
	body, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Type != "" {
		cause = fmt.Errorf("%s: %s", errResp.Error.Type, errResp.Error.Reason)
	} else {
		cause = fmt.Errorf("unexpected status %s", res.Status())
	}
	if res.StatusCode >= http.StatusInternalServerError {
		return engine.Unavailable(op, cause)
	}
	return fmt.Errorf("%s: %w", op, cause)
}

func closeBody(res *esapi.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	const op = "elasticsearch ping"
	client, err := e.es()
	if err != nil {
		return err
	}
	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return engine.Unavailable(op, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return engine.Unavailable(op, fmt.Errorf("unexpected status %s", res.Status()))
	}
	return nil
}

// EnsureIndex creates the index with the fixed mapping when it is absent.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	if err := e.ensureIndex(ctx); err != nil {
		return &engine.IndexProvisionError{Index: e.indexName, Err: err}
	}
	return nil
}

func (e *Engine) ensureIndex(ctx context.Context) error {
	client, err := e.es()
	if err != nil {
		return err
	}

	res, err := client.Indices.Exists([]string{e.indexName}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return engine.Unavailable("check index exists", err)
	}
	closeBody(res)

	switch {
	case res.StatusCode == http.StatusOK:
		e.logger.Debug("elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	case res.StatusCode >= http.StatusInternalServerError:
		return engine.Unavailable("check index exists", fmt.Errorf("unexpected status %s", res.Status()))
	}

	res, err = client.Indices.Create(
		e.indexName,
		client.Indices.Create.WithBody(strings.NewReader(IndexMapping())),
		client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return engine.Unavailable("create index", err)
	}
	defer closeBody(res)

	if res.IsError() {
		err := responseError("create index", res)
		// Another process created it between the two calls.
		if res.StatusCode == http.StatusBadRequest && strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return err
	}

	e.logger.Info("elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// DeleteIndex drops the index; an absent index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	const op = "elasticsearch delete index"
	client, err := e.es()
	if err != nil {
		return err
	}

	res, err := client.Indices.Delete([]string{e.indexName}, client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return engine.Unavailable(op, err)
	}
	defer closeBody(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError(op, res)
	}

	e.logger.Info("elasticsearch index deleted", slog.String("index", e.indexName))
	return nil
}

// Upsert indexes doc under its id and refreshes so the next read sees it.
func (e *Engine) Upsert(ctx context.Context, doc domain.Document) error {
	const op = "elasticsearch upsert"
	if doc.ID == "" {
		return fmt.Errorf("%s: empty document id", op)
	}
	client, err := e.es()
	if err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: marshal document: %w", op, err)
	}

	res, err := client.Index(
		e.indexName,
		bytes.NewReader(data),
		client.Index.WithDocumentID(doc.ID),
		client.Index.WithRefresh("true"),
		client.Index.WithContext(ctx),
	)
	if err != nil {
		return engine.Unavailable(op, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return responseError(op, res)
	}

	e.logger.Debug("indexed product", slog.String("id", doc.ID))
	return nil
}

// Update applies a partial document. A 404 means the document is absent.
func (e *Engine) Update(ctx context.Context, id string, fields map[string]any) error {
	const op = "elasticsearch update"
	client, err := e.es()
	if err != nil {
		return err
	}

	data, err := json.Marshal(map[string]any{"doc": fields})
	if err != nil {
		return fmt.Errorf("%s: marshal fields: %w", op, err)
	}

	res, err := client.Update(
		e.indexName,
		id,
		bytes.NewReader(data),
		client.Update.WithRefresh("true"),
		client.Update.WithContext(ctx),
	)
	if err != nil {
		return engine.Unavailable(op, err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, id, engine.ErrDocumentMissing)
	}
	if res.IsError() {
		return responseError(op, res)
	}
	return nil
}

// Remove deletes document id; a 404 is treated as success.
func (e *Engine) Remove(ctx context.Context, id string) error {
	const op = "elasticsearch remove"
	client, err := e.es()
	if err != nil {
		return err
	}

	res, err := client.Delete(
		e.indexName,
		id,
		client.Delete.WithRefresh("true"),
		client.Delete.WithContext(ctx),
	)
	if err != nil {
		return engine.Unavailable(op, err)
	}
	defer closeBody(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError(op, res)
	}
	return nil
}

// search runs body against the index and decodes the response into out.
func (e *Engine) search(ctx context.Context, op string, body map[string]any, out any) error {
	client, err := e.es()
	if err != nil {
		return err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal query: %w", op, err)
	}

	res, err := client.Search(
		client.Search.WithIndex(e.indexName),
		client.Search.WithBody(bytes.NewReader(data)),
		client.Search.WithContext(ctx),
	)
	if err != nil {
		return engine.Unavailable(op, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return responseError(op, res)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return engine.Unavailable(op, err)
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

var _ engine.SearchEngine = (*Engine)(nil)
