// Package service normalizes shopper queries and runs them against the
// search engine.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
	apperrors "github.com/ammadakrram/storefront-search/pkg/errors"
	"github.com/ammadakrram/storefront-search/pkg/pagination"
	"github.com/ammadakrram/storefront-search/pkg/tracing"
)

const tracerName = "github.com/ammadakrram/storefront-search/internal/service"

// MinSuggestPrefix is the shortest prefix, in characters, that reaches the
// engine.
const MinSuggestPrefix = 2

// Limits bounds page sizes and suggestion counts.
type Limits struct {
	DefaultPageSize     int
	MaxPageSize         int
	DefaultSuggestLimit int
	MaxSuggestLimit     int
	// MaxResultWindow is the deepest hit reachable by paging, matching the
	// cluster's index.max_result_window. Zero means unbounded.
	MaxResultWindow int
}

// DefaultLimits matches the storefront grid and search box.
func DefaultLimits() Limits {
	return Limits{
		DefaultPageSize:     9,
		MaxPageSize:         100,
		DefaultSuggestLimit: 5,
		MaxSuggestLimit:     20,
		MaxResultWindow:     10000,
	}
}

// SearchInput is a raw shopper query. Empty strings and nil pointers mean
// "not given".
type SearchInput struct {
	Query      string
	Category   string
	DressStyle string
	MinPrice   *float64
	MaxPrice   *float64
	Colors     []string
	Sizes      []string
	Sort       string
	Page       int
	Limit      int
}

// SearchService serves the read side of the index.
type SearchService struct {
	engine engine.SearchEngine
	limits Limits
	logger *slog.Logger
	tracer trace.Tracer
}

// NewSearchService creates a new search service.
func NewSearchService(eng engine.SearchEngine, limits Limits, logger *slog.Logger) *SearchService {
	return &SearchService{
		engine: eng,
		limits: limits,
		logger: logger,
		tracer: tracing.Tracer(tracerName),
	}
}

// Normalize turns in into an engine request. It never fails: bad values
// fall back to defaults, and a query with no searchable terms is dropped.
func (s *SearchService) Normalize(in SearchInput) domain.SearchRequest {
	req, _ := s.normalize(in)
	return req
}

// normalize also reports whether the page lies past MaxResultWindow.
func (s *SearchService) normalize(in SearchInput) (domain.SearchRequest, bool) {
	p := pagination.Normalize(in.Page, in.Limit, s.pageLimits())
	return domain.SearchRequest{
		Query:      searchable(in.Query),
		Category:   optional(in.Category),
		DressStyle: optional(in.DressStyle),
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Colors:     clean(in.Colors),
		Sizes:      clean(in.Sizes),
		Sort:       domain.ParseSortMode(strings.TrimSpace(in.Sort)),
		Page:       p.Page,
		PageSize:   p.PerPage,
	}, p.Beyond
}

func (s *SearchService) pageLimits() pagination.Limits {
	return pagination.Limits{
		DefaultPerPage: s.limits.DefaultPageSize,
		MaxPerPage:     s.limits.MaxPageSize,
		MaxWindow:      s.limits.MaxResultWindow,
	}
}

// searchable trims q and drops it when it holds no letters or digits, so
// every engine treats it as match-all.
func searchable(q string) string {
	q = strings.TrimSpace(q)
	if len(engine.Terms(q)) == 0 {
		return ""
	}
	return q
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func clean(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Search runs a product query.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (page *domain.SearchPage, err error) {
	req, beyond := s.normalize(in)

	ctx, span := s.tracer.Start(ctx, "SearchService.Search", trace.WithAttributes(
		attribute.String("search.query", req.Query),
		attribute.String("search.sort", string(req.Sort)),
		attribute.Int("search.page", req.Page),
		attribute.Int("search.page_size", req.PageSize),
	))
	defer func() { endSpan(span, err) }()

	// Past the window only the total is fetched; the page itself is empty.
	engineReq := req
	if beyond {
		engineReq.Page, engineReq.PageSize = 1, 0
	}

	page, err = s.engine.Search(ctx, engineReq)
	if err != nil {
		return nil, s.engineError(ctx, "search", err)
	}
	if beyond || page.Products == nil {
		page.Products = []domain.ProductHit{}
	}
	page.Page = req.Page
	page.Limit = req.PageSize
	page.Pages = pagination.Pages(page.Total, req.PageSize)

	span.SetAttributes(attribute.Int("search.total", page.Total))
	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", req.Query),
		slog.Int("total", page.Total),
		slog.Int64("took_ms", page.TookMs),
	)
	return page, nil
}

// Suggest returns name completions for prefix. Prefixes shorter than
// MinSuggestPrefix yield no suggestions without touching the engine.
func (s *SearchService) Suggest(ctx context.Context, prefix string, limit int) (out []domain.Suggestion, err error) {
	prefix = strings.TrimSpace(prefix)
	if utf8.RuneCountInString(prefix) < MinSuggestPrefix {
		return []domain.Suggestion{}, nil
	}
	if limit <= 0 {
		limit = s.limits.DefaultSuggestLimit
	}
	if limit > s.limits.MaxSuggestLimit {
		limit = s.limits.MaxSuggestLimit
	}

	ctx, span := s.tracer.Start(ctx, "SearchService.Suggest", trace.WithAttributes(
		attribute.String("search.prefix", prefix),
		attribute.Int("search.limit", limit),
	))
	defer func() { endSpan(span, err) }()

	out, err = s.engine.Suggest(ctx, prefix, limit)
	if err != nil {
		return nil, s.engineError(ctx, "suggest", err)
	}
	return out, nil
}

// Aggregate returns the facets of the in-stock products matching query.
// Structured filters do not narrow facets.
func (s *SearchService) Aggregate(ctx context.Context, query string) (facets *domain.Facets, err error) {
	query = searchable(query)

	ctx, span := s.tracer.Start(ctx, "SearchService.Aggregate", trace.WithAttributes(
		attribute.String("search.query", query),
	))
	defer func() { endSpan(span, err) }()

	facets, err = s.engine.Aggregate(ctx, query)
	if err != nil {
		return nil, s.engineError(ctx, "aggregate", err)
	}
	return facets, nil
}

// engineError maps engine failures onto application errors.
func (s *SearchService) engineError(ctx context.Context, op string, err error) error {
	if engine.IsUnavailable(err) {
		s.logger.WarnContext(ctx, "search engine unavailable",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return apperrors.ServiceUnavailable("search engine", err)
	}
	return apperrors.Internal(fmt.Errorf("%s: %w", op, err))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
