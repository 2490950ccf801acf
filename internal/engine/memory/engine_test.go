package memory

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
	"github.com/ammadakrram/storefront-search/internal/engine/enginetest"
)

func TestEngine_Conformance(t *testing.T) {
	enginetest.Run(t, func(t *testing.T) engine.SearchEngine { return New() })
}

func TestSearch_NameMatchesOutrankDescription(t *testing.T) {
	e := New()
	enginetest.Seed(t, e)

	page, err := e.Search(context.Background(), enginetest.Request("classic", domain.SortRelevance, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, enginetest.IDs(page))
	assert.Greater(t, *page.Products[0].Score, *page.Products[2].Score)
}

func TestSearch_ScoreOnlyForRankedQueries(t *testing.T) {
	e := New()
	enginetest.Seed(t, e)

	page, err := e.Search(context.Background(), enginetest.Request("classic", domain.SortPriceAsc, 10))
	require.NoError(t, err)
	require.NotEmpty(t, page.Products)
	for _, p := range page.Products {
		assert.Nil(t, p.Score)
	}
}

func TestSearch_PastLastPage(t *testing.T) {
	e := New()
	enginetest.Seed(t, e)

	req := enginetest.Request("", domain.SortNewest, 9)
	req.Page = 5
	page, err := e.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Equal(t, 4, page.Total)
}

func TestSearch_NegativeOffsetStartsAtFirstHit(t *testing.T) {
	e := New()
	enginetest.Seed(t, e)

	req := enginetest.Request("", domain.SortPriceAsc, 9)
	req.Page = 0
	page, err := e.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p5"}, enginetest.IDs(page))
}

func TestUpsert_RejectsEmptyID(t *testing.T) {
	e := New()
	err := e.Upsert(context.Background(), domain.Document{Name: "nameless"})
	require.Error(t, err)
	assert.Equal(t, 0, e.Len())
}

func TestUpsert_CreatesIndexImplicitly(t *testing.T) {
	e := New()
	assert.False(t, e.Exists())
	require.NoError(t, e.Upsert(context.Background(), enginetest.Fixtures()[0]))
	assert.True(t, e.Exists())
}

func TestBulk_PerItemOutcomes(t *testing.T) {
	e := New()
	ctx := context.Background()
	require.NoError(t, e.Upsert(ctx, enginetest.Fixtures()[0]))

	docs := []domain.Document{enginetest.Fixtures()[0], {Name: "no id"}, enginetest.Fixtures()[1]}
	outcomes, err := e.Bulk(ctx, docs)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, http.StatusOK, outcomes[0].Status)
	assert.True(t, outcomes[0].OK())
	assert.Equal(t, http.StatusBadRequest, outcomes[1].Status)
	assert.False(t, outcomes[1].OK())
	assert.Equal(t, http.StatusCreated, outcomes[2].Status)
	assert.Equal(t, 2, e.Len())
}

func TestUpdate_KeepsUntouchedFields(t *testing.T) {
	e := New()
	enginetest.Seed(t, e)

	require.NoError(t, e.Update(context.Background(), "p2", map[string]any{"colors": []string{"navy"}}))

	doc, ok := e.Get("p2")
	require.True(t, ok)
	assert.Equal(t, []string{"navy"}, doc.Colors)
	assert.Equal(t, "p2", doc.ID)
	assert.Equal(t, 39.5, doc.Price)
	require.NotNil(t, doc.DiscountPrice)
	assert.Equal(t, 31.6, *doc.DiscountPrice)
	assert.Equal(t, enginetest.Base.Add(time.Hour), doc.CreatedAt)
}

func TestUnavailable(t *testing.T) {
	e := New()
	enginetest.Seed(t, e)
	ctx := context.Background()
	e.SetPingError(errors.New("connection refused"))

	assert.True(t, engine.IsUnavailable(e.Ping(ctx)))
	_, err := e.Search(ctx, enginetest.Request("", domain.SortNewest, 9))
	assert.True(t, engine.IsUnavailable(err))
	_, err = e.Suggest(ctx, "cl", 5)
	assert.True(t, engine.IsUnavailable(err))
	_, err = e.Aggregate(ctx, "")
	assert.True(t, engine.IsUnavailable(err))
	assert.True(t, engine.IsUnavailable(e.Upsert(ctx, enginetest.Fixtures()[0])))
	assert.True(t, engine.IsUnavailable(e.Remove(ctx, "p1")))

	var provision *engine.IndexProvisionError
	require.ErrorAs(t, e.EnsureIndex(ctx), &provision)
	assert.True(t, engine.IsUnavailable(provision))

	e.SetPingError(nil)
	assert.NoError(t, e.Ping(ctx))
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"classic", "classic", 0},
		{"clasic", "classic", 1},
		{"kitten", "sitting", 3},
		{"café", "cafe", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, levenshtein(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestNameTermScore_Prefix(t *testing.T) {
	tokens := engine.Terms("Classic Denim Shorts")
	assert.Equal(t, 1.0, nameTermScore("cla", tokens))
	assert.Equal(t, 1.0, nameTermScore("shorts", tokens))
	assert.Zero(t, nameTermScore("x", tokens))
	assert.Zero(t, nameTermScore("jeans", tokens))
}
