package http

import (
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/service"
	"github.com/ammadakrram/storefront-search/pkg/httputil"
)

// SearchHandler serves the shopper-facing read endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// searchResponse adds the size of the returned page to a SearchPage.
type searchResponse struct {
	*domain.SearchPage
	Count int `json:"count"`
}

// Search handles GET /api/v1/search. Malformed parameters fall back to
// their defaults instead of failing the request.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	in := service.SearchInput{
		Query:      q.Get("q"),
		Category:   q.Get("category"),
		DressStyle: q.Get("dressStyle"),
		MinPrice:   floatParam(q, "minPrice"),
		MaxPrice:   floatParam(q, "maxPrice"),
		Colors:     listParam(q, "colors"),
		Sizes:      listParam(q, "sizes"),
		Sort:       q.Get("sort"),
		Page:       intParam(q, "page"),
		Limit:      intParam(q, "limit"),
	}

	page, err := h.service.Search(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, searchResponse{SearchPage: page, Count: len(page.Products)})
}

// Autocomplete handles GET /api/v1/search/autocomplete
func (h *SearchHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	suggestions, err := h.service.Suggest(r.Context(), q.Get("q"), intParam(q, "limit"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, suggestions)
}

// Filters handles GET /api/v1/search/filters
func (h *SearchHandler) Filters(w http.ResponseWriter, r *http.Request) {
	facets, err := h.service.Aggregate(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, facets)
}

// intParam returns 0, meaning "use the default", for missing or
// non-numeric values.
func intParam(q url.Values, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	if err != nil {
		return 0
	}
	return n
}

// floatParam returns nil for missing, non-numeric or non-finite values.
func floatParam(q url.Values, key string) *float64 {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// listParam accepts both colors=Red,Blue and colors=Red&colors=Blue.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
