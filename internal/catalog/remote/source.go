// Package remote reads the catalog through the product service REST API.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/pkg/httpclient"
	"github.com/ammadakrram/storefront-search/pkg/validator"
)

const serviceName = "product-service"

// listResponse is the product service list envelope.
type listResponse struct {
	Success bool                     `json:"success"`
	Count   int                      `json:"count"`
	Total   int                      `json:"total"`
	Page    int                      `json:"page"`
	Pages   int                      `json:"pages"`
	Data    []catalog.ProductPayload `json:"data"`
}

// Source pages through GET {base}/api/products.
type Source struct {
	baseURL string
	client  *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// New returns a source for the product service at baseURL.
func New(baseURL string, client *httpclient.CircuitBreakerClient, logger *slog.Logger) *Source {
	return &Source{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// NewDefault builds the retrying, circuit-broken client itself.
func NewDefault(baseURL string, logger *slog.Logger) *Source {
	cb := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig(serviceName),
		logger,
	)
	return New(baseURL, cb, logger)
}

func (s *Source) pageURL(page, limit int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return s.baseURL + "/api/products?" + q.Encode()
}

func (s *Source) fetch(ctx context.Context, page, limit int) (*listResponse, error) {
	resp, err := s.client.Get(ctx, s.pageURL(page, limit))
	if err != nil {
		return nil, fmt.Errorf("list products page %d: %w", page, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list products page %d: %w", page, httpclient.ParseResponseError(resp, serviceName))
	}
	defer func() { _ = resp.Body.Close() }()

	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode products page %d: %w", page, err)
	}
	return &out, nil
}

// Scan implements catalog.Source. Payloads failing validation are logged and
// skipped so one malformed product does not block a reindex.
func (s *Source) Scan(ctx context.Context, batchSize int, fn func([]domain.Product) error) error {
	if batchSize <= 0 {
		return catalog.ErrInvalidBatchSize
	}

	for page := 1; ; page++ {
		res, err := s.fetch(ctx, page, batchSize)
		if err != nil {
			return err
		}
		if len(res.Data) == 0 {
			return nil
		}

		batch := make([]domain.Product, 0, len(res.Data))
		for _, p := range res.Data {
			if err := validator.Validate(p); err != nil {
				s.logger.WarnContext(ctx, "skipping invalid catalog product",
					slog.String("product_id", p.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			batch = append(batch, p.Product())
		}
		if len(batch) > 0 {
			if err := fn(batch); err != nil {
				return err
			}
		}

		if res.Pages > 0 && page >= res.Pages {
			return nil
		}
		if res.Pages == 0 && len(res.Data) < batchSize {
			return nil
		}
	}
}

// Ping fetches a one-item page.
func (s *Source) Ping(ctx context.Context) error {
	_, err := s.fetch(ctx, 1, 1)
	return err
}

var _ catalog.Source = (*Source)(nil)
