package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
)

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// Bulk indexes docs with one NDJSON request and reports the outcome of each
// document in input order. Documents without an id are rejected locally
// because the cluster would otherwise assign a random one.
func (e *Engine) Bulk(ctx context.Context, docs []domain.Document) ([]engine.BulkOutcome, error) {
	const op = "elasticsearch bulk"

	outcomes := make([]engine.BulkOutcome, len(docs))
	sent := make([]int, 0, len(docs))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, doc := range docs {
		if doc.ID == "" {
			outcomes[i] = engine.BulkOutcome{Status: http.StatusBadRequest, Error: "document id is required"}
			continue
		}
		action := map[string]any{
			"index": map[string]any{"_index": e.indexName, "_id": doc.ID},
		}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("%s: encode action: %w", op, err)
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("%s: encode document %s: %w", op, doc.ID, err)
		}
		sent = append(sent, i)
	}
	if len(sent) == 0 {
		return outcomes, nil
	}

	client, err := e.es()
	if err != nil {
		return nil, err
	}

	res, err := client.Bulk(
		bytes.NewReader(buf.Bytes()),
		client.Bulk.WithIndex(e.indexName),
		client.Bulk.WithRefresh("true"),
		client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, engine.Unavailable(op, err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, responseError(op, res)
	}

	var resp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if len(resp.Items) != len(sent) {
		return nil, fmt.Errorf("%s: got %d items for %d documents", op, len(resp.Items), len(sent))
	}

	failed := 0
	for j, item := range resp.Items {
		i := sent[j]
		outcome := engine.BulkOutcome{ID: docs[i].ID, Status: item.Index.Status}
		if item.Index.Error != nil {
			outcome.Error = item.Index.Error.Type + ": " + item.Index.Error.Reason
			failed++
		}
		outcomes[i] = outcome
	}

	e.logger.Debug("bulk indexed products",
		slog.Int("sent", len(sent)),
		slog.Int("failed", failed),
	)
	return outcomes, nil
}
