package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
	"github.com/ammadakrram/storefront-search/internal/engine/enginetest"
	"github.com/ammadakrram/storefront-search/internal/engine/memory"
	apperrors "github.com/ammadakrram/storefront-search/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*SearchService, *memory.Engine) {
	t.Helper()
	eng := memory.New()
	enginetest.Seed(t, eng)
	return NewSearchService(eng, DefaultLimits(), newTestLogger()), eng
}

// spyEngine records what reaches the engine and can fail every call.
type spyEngine struct {
	*memory.Engine
	err        error
	calls      int
	lastReq    domain.SearchRequest
	lastLimit  int
	lastQuery  string
	lastPrefix string
}

func newSpy() *spyEngine { return &spyEngine{Engine: memory.New()} }

func (s *spyEngine) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchPage, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.Engine.Search(ctx, req)
}

func (s *spyEngine) Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	s.calls++
	s.lastPrefix, s.lastLimit = prefix, limit
	if s.err != nil {
		return nil, s.err
	}
	return s.Engine.Suggest(ctx, prefix, limit)
}

func (s *spyEngine) Aggregate(ctx context.Context, query string) (*domain.Facets, error) {
	s.calls++
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	return s.Engine.Aggregate(ctx, query)
}

func ptr[T any](v T) *T { return &v }

func TestNormalize(t *testing.T) {
	svc := NewSearchService(memory.New(), DefaultLimits(), newTestLogger())

	req := svc.Normalize(SearchInput{
		Query:    "  classic tee ",
		Category: " ",
		Colors:   []string{"blue", " ", " white "},
		Sort:     "cheapest",
		Page:     -3,
		Limit:    0,
	})
	assert.Equal(t, "classic tee", req.Query)
	assert.Nil(t, req.Category)
	assert.Nil(t, req.DressStyle)
	assert.Equal(t, []string{"blue", "white"}, req.Colors)
	assert.Nil(t, req.Sizes)
	assert.Equal(t, domain.SortRelevance, req.Sort)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, 9, req.PageSize)

	req = svc.Normalize(SearchInput{Category: "Jeans", Sort: "price_desc", Page: 3, Limit: 500})
	require.NotNil(t, req.Category)
	assert.Equal(t, "Jeans", *req.Category)
	assert.Equal(t, domain.SortPriceDesc, req.Sort)
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, 100, req.PageSize)
}

func TestSearch_DefaultsAndPages(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.Search(context.Background(), SearchInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 9, page.Limit)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 1, page.Pages)

	page, err = svc.Search(context.Background(), SearchInput{Limit: 3, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Products, 1)
}

func TestSearch_ClassicScenario(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.Search(context.Background(), SearchInput{Query: "classic"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, enginetest.IDs(page))
	for _, p := range page.Products {
		assert.NotNil(t, p.Score)
	}
}

func TestSearch_PriceAscendingWithinRange(t *testing.T) {
	svc, _ := newTestService(t)

	page, err := svc.Search(context.Background(), SearchInput{
		MinPrice: ptr(20.0),
		MaxPrice: ptr(60.0),
		Sort:     "price_asc",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, enginetest.IDs(page))
}

func TestSearch_PaginationCoversEveryHitOnce(t *testing.T) {
	svc, _ := newTestService(t)

	seen := map[string]int{}
	for p := 1; p <= 3; p++ {
		page, err := svc.Search(context.Background(), SearchInput{Sort: "price_asc", Page: p, Limit: 2})
		require.NoError(t, err)
		for _, id := range enginetest.IDs(page) {
			seen[id]++
		}
	}
	assert.Equal(t, map[string]int{"p1": 1, "p2": 1, "p3": 1, "p5": 1}, seen)
}

func TestSearch_DeepPagesAreEmptyNotErrors(t *testing.T) {
	spy := newSpy()
	enginetest.Seed(t, spy.Engine)
	svc := NewSearchService(spy, DefaultLimits(), newTestLogger())

	for _, n := range []int{2000, math.MaxInt64/9 + 2, math.MaxInt} {
		page, err := svc.Search(context.Background(), SearchInput{Page: n, Limit: 9})
		require.NoError(t, err, "page %d", n)
		assert.Empty(t, page.Products)
		assert.NotNil(t, page.Products)
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, 1, page.Pages)
		assert.Equal(t, 1112, page.Page)

		assert.GreaterOrEqual(t, spy.lastReq.Offset(), 0)
		assert.LessOrEqual(t, spy.lastReq.Offset()+spy.lastReq.PageSize, 10000)
	}

	// The last page inside the window still reaches the engine as asked.
	_, err := svc.Search(context.Background(), SearchInput{Page: 1111, Limit: 9})
	require.NoError(t, err)
	assert.Equal(t, 9990, spy.lastReq.Offset())
	assert.Equal(t, 9, spy.lastReq.PageSize)
}

func TestSearch_HugePageWithoutWindow(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxResultWindow = 0
	eng := memory.New()
	enginetest.Seed(t, eng)
	svc := NewSearchService(eng, limits, newTestLogger())

	page, err := svc.Search(context.Background(), SearchInput{Page: math.MaxInt64/9 + 2, Limit: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Equal(t, 4, page.Total)
}

func TestSearch_PunctuationOnlyQueryMatchesAll(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Equal(t, "", svc.Normalize(SearchInput{Query: " !!! "}).Query)

	page, err := svc.Search(context.Background(), SearchInput{Query: "!!!"})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	for _, p := range page.Products {
		assert.Nil(t, p.Score)
	}
}

func TestSearch_EngineUnavailable(t *testing.T) {
	eng := memory.New()
	eng.SetPingError(errors.New("connection refused"))
	svc := NewSearchService(eng, DefaultLimits(), newTestLogger())

	_, err := svc.Search(context.Background(), SearchInput{Query: "tee"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.True(t, engine.IsUnavailable(err))
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestSearch_OtherEngineErrorsAreInternal(t *testing.T) {
	spy := newSpy()
	spy.err = errors.New("malformed query")
	svc := NewSearchService(spy, DefaultLimits(), newTestLogger())

	_, err := svc.Search(context.Background(), SearchInput{Query: "tee"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
	assert.Contains(t, err.Error(), "malformed query")
}

func TestSuggest_ShortPrefixSkipsEngine(t *testing.T) {
	spy := newSpy()
	spy.err = errors.New("must not be called")
	svc := NewSearchService(spy, DefaultLimits(), newTestLogger())

	for _, prefix := range []string{"", " ", "c", " c ", "é"} {
		out, err := svc.Suggest(context.Background(), prefix, 5)
		require.NoError(t, err, prefix)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	}
	assert.Zero(t, spy.calls)
}

func TestSuggest_Limits(t *testing.T) {
	spy := newSpy()
	svc := NewSearchService(spy, DefaultLimits(), newTestLogger())
	ctx := context.Background()

	_, err := svc.Suggest(ctx, " cl ", 0)
	require.NoError(t, err)
	assert.Equal(t, "cl", spy.lastPrefix)
	assert.Equal(t, 5, spy.lastLimit)

	_, err = svc.Suggest(ctx, "cl", 50)
	require.NoError(t, err)
	assert.Equal(t, 20, spy.lastLimit)
}

func TestSuggest_Hits(t *testing.T) {
	svc, _ := newTestService(t)

	out, err := svc.Suggest(context.Background(), "cl", 5)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, s := range out {
		assert.Contains(t, s.Name, "Classic")
	}
}

func TestSuggest_Unavailable(t *testing.T) {
	eng := memory.New()
	eng.SetPingError(errors.New("connection refused"))
	svc := NewSearchService(eng, DefaultLimits(), newTestLogger())

	_, err := svc.Suggest(context.Background(), "classic", 5)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestAggregate(t *testing.T) {
	svc, _ := newTestService(t)

	facets, err := svc.Aggregate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []domain.Bucket{{Value: "blue", Count: 2}, {Value: "white", Count: 2}, {Value: "black", Count: 1}}, facets.Colors)
	require.NotNil(t, facets.PriceRange.Min)
	assert.Equal(t, 24.99, *facets.PriceRange.Min)
}

func TestAggregate_TrimsQuery(t *testing.T) {
	spy := newSpy()
	svc := NewSearchService(spy, DefaultLimits(), newTestLogger())

	_, err := svc.Aggregate(context.Background(), "  classic ")
	require.NoError(t, err)
	assert.Equal(t, "classic", spy.lastQuery)

	_, err = svc.Aggregate(context.Background(), "?!")
	require.NoError(t, err)
	assert.Equal(t, "", spy.lastQuery)
}

func TestAggregate_Unavailable(t *testing.T) {
	spy := newSpy()
	spy.err = engine.Unavailable("aggregate", errors.New("timeout"))
	svc := NewSearchService(spy, DefaultLimits(), newTestLogger())

	_, err := svc.Aggregate(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}
