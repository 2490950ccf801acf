package enginetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
)

// Factory returns an empty engine whose index has not been created.
type Factory func(t *testing.T) engine.SearchEngine

// Seed creates the index and loads Fixtures into it.
func Seed(t *testing.T, e engine.SearchEngine) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.EnsureIndex(ctx))
	outcomes, err := e.Bulk(ctx, Fixtures())
	require.NoError(t, err)
	for _, o := range outcomes {
		require.True(t, o.OK(), "bulk item %s failed: %s", o.ID, o.Error)
	}
}

// Run exercises the behaviour shared by every backend.
func Run(t *testing.T, newEngine Factory) {
	ctx := context.Background()

	t.Run("ensure index is idempotent", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.EnsureIndex(ctx))
		require.NoError(t, e.Upsert(ctx, Fixtures()[0]))
		require.NoError(t, e.EnsureIndex(ctx))

		page, err := e.Search(ctx, Request("", domain.SortRelevance, 10))
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("full text query finds name and description matches", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		page, err := e.Search(ctx, Request("classic", domain.SortRelevance, 10))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, IDs(page))
		assert.Equal(t, 3, page.Total)
		for _, p := range page.Products {
			require.NotNil(t, p.Score, "relevance hits carry a score")
		}
	})

	t.Run("misspelled query still matches", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		page, err := e.Search(ctx, Request("clasic", domain.SortRelevance, 10))
		require.NoError(t, err)
		assert.Contains(t, IDs(page), "p1")
	})

	t.Run("out of stock documents are never returned", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		page, err := e.Search(ctx, Request("hoodie", domain.SortRelevance, 10))
		require.NoError(t, err)
		assert.Empty(t, page.Products)
		assert.Equal(t, 0, page.Total)

		page, err = e.Search(ctx, Request("", domain.SortNewest, 10))
		require.NoError(t, err)
		assert.NotContains(t, IDs(page), "p4")
	})

	t.Run("empty query lists newest first", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		page, err := e.Search(ctx, Request("", domain.SortRelevance, 10))
		require.NoError(t, err)
		assert.Equal(t, []string{"p5", "p3", "p2", "p1"}, IDs(page))
		for _, p := range page.Products {
			assert.Nil(t, p.Score)
		}
	})

	t.Run("sort modes", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		cases := map[domain.SortMode][]string{
			domain.SortPriceAsc:  {"p1", "p2", "p3", "p5"},
			domain.SortPriceDesc: {"p5", "p3", "p2", "p1"},
			domain.SortRating:    {"p3", "p1", "p2", "p5"},
			domain.SortNewest:    {"p5", "p3", "p2", "p1"},
		}
		for mode, want := range cases {
			page, err := e.Search(ctx, Request("", mode, 10))
			require.NoError(t, err)
			assert.Equal(t, want, IDs(page), "sort %s", mode)
		}
	})

	t.Run("structured filters", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		minPrice, maxPrice := 30.0, 60.0
		req := Request("", domain.SortPriceAsc, 10)
		req.MinPrice, req.MaxPrice = &minPrice, &maxPrice
		page, err := e.Search(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"p2", "p3"}, IDs(page))

		req = Request("", domain.SortPriceAsc, 10)
		req.Colors = []string{"blue"}
		page, err = e.Search(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"p2", "p5"}, IDs(page))

		req = Request("", domain.SortPriceAsc, 10)
		req.Sizes = []string{"XL"}
		page, err = e.Search(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, IDs(page))

		category := string(domain.CategoryJeans)
		req = Request("", domain.SortPriceAsc, 10)
		req.Category = &category
		page, err = e.Search(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"p5"}, IDs(page))

		style := string(domain.DressStyleCasual)
		req = Request("classic", domain.SortPriceAsc, 10)
		req.DressStyle = &style
		page, err = e.Search(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p2"}, IDs(page))
	})

	t.Run("pages are disjoint and cover every hit", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		seen := map[string]bool{}
		for page := 1; page <= 3; page++ {
			req := Request("", domain.SortPriceAsc, 2)
			req.Page = page
			res, err := e.Search(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, 4, res.Total)
			assert.Equal(t, page, res.Page)
			assert.Equal(t, 2, res.Limit)
			for _, id := range IDs(res) {
				assert.False(t, seen[id], "%s returned twice", id)
				seen[id] = true
			}
		}
		assert.Len(t, seen, 4)
	})

	t.Run("suggest", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		got, err := e.Suggest(ctx, "cl", 5)
		require.NoError(t, err)
		require.Len(t, got, 2)
		names := []string{got[0].Name, got[1].Name}
		assert.ElementsMatch(t, []string{"Classic Tee", "Classic Denim Shorts"}, names)
		for _, s := range got {
			if s.ID == "p1" {
				assert.Equal(t, 24.99, s.Price)
				assert.Equal(t, "tee.jpg", s.Image)
			}
		}

		got, err = e.Suggest(ctx, "zip", 5)
		require.NoError(t, err)
		assert.Empty(t, got, "sold out products are not suggested")

		got, err = e.Suggest(ctx, "cl", 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("aggregate", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		f, err := e.Aggregate(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []domain.Bucket{
			{Value: "blue", Count: 2},
			{Value: "white", Count: 2},
			{Value: "black", Count: 1},
		}, f.Colors)
		assert.Equal(t, []domain.Bucket{
			{Value: "Casual", Count: 3},
			{Value: "Formal", Count: 1},
		}, f.DressStyles)
		assert.Len(t, f.Categories, 4)
		assert.Equal(t, domain.Bucket{Value: "M", Count: 3}, f.Sizes[0])

		require.NotNil(t, f.PriceRange.Min)
		require.NotNil(t, f.PriceRange.Max)
		require.NotNil(t, f.PriceRange.Avg)
		assert.InDelta(t, 24.99, *f.PriceRange.Min, 0.001)
		assert.InDelta(t, 79.9, *f.PriceRange.Max, 0.001)
		assert.InDelta(t, 50.8475, *f.PriceRange.Avg, 0.001)

		f, err = e.Aggregate(ctx, "classic")
		require.NoError(t, err)
		assert.Len(t, f.Categories, 3)
	})

	t.Run("aggregate over nothing", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.EnsureIndex(ctx))

		f, err := e.Aggregate(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, f.Categories)
		assert.Nil(t, f.PriceRange.Min)
		assert.Nil(t, f.PriceRange.Avg)
	})

	t.Run("update merges fields", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		require.NoError(t, e.Update(ctx, "p1", map[string]any{"stock": 0}))

		page, err := e.Search(ctx, Request("", domain.SortNewest, 10))
		require.NoError(t, err)
		assert.Equal(t, []string{"p5", "p3", "p2"}, IDs(page))

		require.NoError(t, e.Update(ctx, "p2", map[string]any{"price": 19.0}))
		page, err = e.Search(ctx, Request("", domain.SortPriceAsc, 1))
		require.NoError(t, err)
		require.Len(t, page.Products, 1)
		assert.Equal(t, "p2", page.Products[0].ID)
		assert.Equal(t, "Classic Denim Shorts", page.Products[0].Name)
	})

	t.Run("update of missing document", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		err := e.Update(ctx, "nope", map[string]any{"stock": 1})
		assert.ErrorIs(t, err, engine.ErrDocumentMissing)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		require.NoError(t, e.Remove(ctx, "p1"))
		require.NoError(t, e.Remove(ctx, "p1"))
		require.NoError(t, e.Remove(ctx, "never-indexed"))

		page, err := e.Search(ctx, Request("", domain.SortNewest, 10))
		require.NoError(t, err)
		assert.NotContains(t, IDs(page), "p1")
	})

	t.Run("upsert replaces", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		doc := Fixtures()[0]
		doc.Name = "Vintage Tee"
		require.NoError(t, e.Upsert(ctx, doc))

		page, err := e.Search(ctx, Request("vintage", domain.SortRelevance, 10))
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, IDs(page))

		page, err = e.Search(ctx, Request("", domain.SortNewest, 10))
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
	})

	t.Run("delete index", func(t *testing.T) {
		e := newEngine(t)
		Seed(t, e)

		require.NoError(t, e.DeleteIndex(ctx))
		require.NoError(t, e.DeleteIndex(ctx))
		require.NoError(t, e.EnsureIndex(ctx))

		page, err := e.Search(ctx, Request("", domain.SortNewest, 10))
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
	})
}
