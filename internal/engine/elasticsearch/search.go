package elasticsearch

import (
	"context"

	"github.com/ammadakrram/storefront-search/internal/domain"
)

type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  *float64        `json:"_score"`
			Source domain.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
}

type esTermsAgg struct {
	Buckets []esBucket `json:"buckets"`
}

type esAggregateResponse struct {
	Aggregations struct {
		Categories  esTermsAgg `json:"categories"`
		Colors      esTermsAgg `json:"colors"`
		Sizes       esTermsAgg `json:"sizes"`
		DressStyles esTermsAgg `json:"dress_styles"`
		PriceStats  struct {
			Count int      `json:"count"`
			Min   *float64 `json:"min"`
			Max   *float64 `json:"max"`
			Avg   *float64 `json:"avg"`
		} `json:"price_stats"`
	} `json:"aggregations"`
}

// Search runs a normalized request. Scores are reported only when the
// request is ranked by relevance.
func (e *Engine) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchPage, error) {
	var resp esSearchResponse
	if err := e.search(ctx, "elasticsearch search", BuildSearchQuery(req), &resp); err != nil {
		return nil, err
	}

	ranked := req.Query != "" && req.Sort == domain.SortRelevance
	products := make([]domain.ProductHit, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		p := domain.ProductHit{Document: hit.Source}
		if ranked {
			p.Score = hit.Score
		}
		products = append(products, p)
	}

	return &domain.SearchPage{
		Products: products,
		Total:    resp.Hits.Total.Value,
		Page:     req.Page,
		Limit:    req.PageSize,
		TookMs:   resp.Took,
	}, nil
}

// Suggest returns name matches for prefix.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	var resp esSearchResponse
	if err := e.search(ctx, "elasticsearch suggest", BuildSuggestQuery(prefix, limit), &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Suggestion, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		out = append(out, domain.Suggestion{
			ID:    hit.Source.ID,
			Name:  hit.Source.Name,
			Price: hit.Source.Price,
			Image: hit.Source.FirstImage(),
		})
	}
	return out, nil
}

// Aggregate computes facets for the documents matching query.
func (e *Engine) Aggregate(ctx context.Context, query string) (*domain.Facets, error) {
	var resp esAggregateResponse
	if err := e.search(ctx, "elasticsearch aggregate", BuildAggregationQuery(query), &resp); err != nil {
		return nil, err
	}

	aggs := resp.Aggregations
	facets := &domain.Facets{
		Categories:  toBuckets(aggs.Categories),
		Colors:      toBuckets(aggs.Colors),
		Sizes:       toBuckets(aggs.Sizes),
		DressStyles: toBuckets(aggs.DressStyles),
	}
	if aggs.PriceStats.Count > 0 {
		facets.PriceRange = domain.PriceStats{
			Min: aggs.PriceStats.Min,
			Max: aggs.PriceStats.Max,
			Avg: aggs.PriceStats.Avg,
		}
	}
	return facets, nil
}

func toBuckets(agg esTermsAgg) []domain.Bucket {
	out := make([]domain.Bucket, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		out = append(out, domain.Bucket{Value: b.Key, Count: b.DocCount})
	}
	return out
}
