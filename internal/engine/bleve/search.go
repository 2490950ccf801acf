package bleve

import (
	"context"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/internal/engine"
)

const (
	nameBoost        = 3.0
	descriptionBoost = 1.0
)

// nameQuery matches each term against the n-gram name field with a per-term
// edit budget. Any term is enough for a hit.
func nameQuery(terms []string, boost float64) []query.Query {
	out := make([]query.Query, 0, len(terms))
	for _, t := range terms {
		q := bleve.NewMatchQuery(t)
		q.SetField(domain.FieldName)
		q.Analyzer = autocompleteSearch
		q.SetFuzziness(engine.AutoFuzziness(t))
		q.SetBoost(boost)
		out = append(out, q)
	}
	return out
}

func descriptionQuery(terms []string) []query.Query {
	out := make([]query.Query, 0, len(terms))
	for _, t := range terms {
		q := bleve.NewMatchQuery(t)
		q.SetField(domain.FieldDescription)
		q.SetFuzziness(engine.AutoFuzziness(t))
		q.SetBoost(descriptionBoost)
		out = append(out, q)
	}
	return out
}

// textQuery is the full-text clause; an empty query matches everything.
func textQuery(text string) query.Query {
	terms := engine.Terms(text)
	if len(terms) == 0 {
		return bleve.NewMatchAllQuery()
	}
	clauses := append(nameQuery(terms, nameBoost), descriptionQuery(terms)...)
	return bleve.NewDisjunctionQuery(clauses...)
}

func inStock() query.Query {
	zero, exclusive := 0.0, false
	q := bleve.NewNumericRangeInclusiveQuery(&zero, nil, &exclusive, nil)
	q.SetField(domain.FieldStock)
	return q
}

func termQuery(field, value string) query.Query {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

// anyTerm matches documents carrying at least one of values in field.
func anyTerm(field string, values []string) query.Query {
	qs := make([]query.Query, 0, len(values))
	for _, v := range values {
		qs = append(qs, termQuery(field, v))
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// buildQuery combines the text clause, the structured filters of req and
// the in-stock filter.
func buildQuery(req domain.SearchRequest) query.Query {
	clauses := []query.Query{textQuery(req.Query), inStock()}

	if req.Category != nil {
		clauses = append(clauses, termQuery(domain.FieldCategory, *req.Category))
	}
	if req.DressStyle != nil {
		clauses = append(clauses, termQuery(domain.FieldDressStyle, *req.DressStyle))
	}
	if req.MinPrice != nil || req.MaxPrice != nil {
		inclusive := true
		q := bleve.NewNumericRangeInclusiveQuery(req.MinPrice, req.MaxPrice, &inclusive, &inclusive)
		q.SetField(domain.FieldPrice)
		clauses = append(clauses, q)
	}
	if len(req.Colors) > 0 {
		clauses = append(clauses, anyTerm(domain.FieldColors, req.Colors))
	}
	if len(req.Sizes) > 0 {
		clauses = append(clauses, anyTerm(domain.FieldSizes, req.Sizes))
	}
	return bleve.NewConjunctionQuery(clauses...)
}

// sortOrder mirrors the Elasticsearch sort clauses, id tiebreaker included.
func sortOrder(mode domain.SortMode, hasQuery bool) []string {
	switch mode {
	case domain.SortPriceAsc:
		return []string{domain.FieldPrice, domain.FieldID}
	case domain.SortPriceDesc:
		return []string{"-" + domain.FieldPrice, domain.FieldID}
	case domain.SortRating:
		return []string{"-" + domain.FieldRating, domain.FieldID}
	case domain.SortNewest:
		return []string{"-" + domain.FieldCreatedAt, domain.FieldID}
	default:
		if hasQuery {
			return []string{"-_score", domain.FieldID}
		}
		return []string{"-" + domain.FieldCreatedAt, domain.FieldID}
	}
}

// Search runs a normalized request.
func (e *Engine) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchPage, error) {
	idx, err := e.open()
	if err != nil {
		return nil, err
	}

	hasQuery := len(engine.Terms(req.Query)) > 0
	sr := bleve.NewSearchRequestOptions(buildQuery(req), req.PageSize, req.Offset(), false)
	sr.SortBy(sortOrder(req.Sort, hasQuery))
	sr.Fields = []string{sourceField}

	res, err := idx.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	ranked := hasQuery && req.Sort == domain.SortRelevance
	products := make([]domain.ProductHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, err := decodeSource(hit.Fields)
		if err != nil {
			return nil, fmt.Errorf("bleve search %s: %w", hit.ID, err)
		}
		p := domain.ProductHit{Document: doc}
		if ranked {
			s := hit.Score
			p.Score = &s
		}
		products = append(products, p)
	}

	return &domain.SearchPage{
		Products: products,
		Total:    int(res.Total),
		Page:     req.Page,
		Limit:    req.PageSize,
		TookMs:   res.Took.Milliseconds(),
	}, nil
}

// Suggest matches prefix against product names.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	terms := engine.Terms(prefix)
	if len(terms) == 0 {
		return []domain.Suggestion{}, nil
	}
	idx, err := e.open()
	if err != nil {
		return nil, err
	}

	q := bleve.NewConjunctionQuery(bleve.NewDisjunctionQuery(nameQuery(terms, 1)...), inStock())
	sr := bleve.NewSearchRequestOptions(q, limit, 0, false)
	sr.SortBy([]string{"-_score", domain.FieldID})
	sr.Fields = []string{sourceField}

	res, err := idx.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("bleve suggest: %w", err)
	}

	out := make([]domain.Suggestion, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, err := decodeSource(hit.Fields)
		if err != nil {
			return nil, fmt.Errorf("bleve suggest %s: %w", hit.ID, err)
		}
		out = append(out, domain.Suggestion{
			ID:    doc.ID,
			Name:  doc.Name,
			Price: doc.Price,
			Image: doc.FirstImage(),
		})
	}
	return out, nil
}

// facet fields and their bucket limits.
var facetFields = []struct {
	name  string
	field string
	size  int
}{
	{"categories", domain.FieldCategory, domain.CategoryBucketLimit},
	{"colors", domain.FieldColors, domain.ColorBucketLimit},
	{"sizes", domain.FieldSizes, domain.SizeBucketLimit},
	{"dress_styles", domain.FieldDressStyle, domain.DressStyleBucketLimit},
}

// Aggregate computes term facets with bleve and price statistics from the
// stored prices of the matched documents.
func (e *Engine) Aggregate(ctx context.Context, text string) (*domain.Facets, error) {
	idx, err := e.open()
	if err != nil {
		return nil, err
	}

	q := bleve.NewConjunctionQuery(textQuery(text), inStock())
	sr := bleve.NewSearchRequestOptions(q, 0, 0, false)
	for _, f := range facetFields {
		sr.AddFacet(f.name, bleve.NewFacetRequest(f.field, f.size))
	}
	res, err := idx.SearchInContext(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("bleve aggregate: %w", err)
	}

	buckets := make(map[string][]domain.Bucket, len(facetFields))
	for _, f := range facetFields {
		buckets[f.name] = toBuckets(res.Facets[f.name])
	}

	stats, err := priceStats(ctx, idx, q, int(res.Total))
	if err != nil {
		return nil, err
	}

	return &domain.Facets{
		Categories:  buckets["categories"],
		Colors:      buckets["colors"],
		Sizes:       buckets["sizes"],
		DressStyles: buckets["dress_styles"],
		PriceRange:  stats,
	}, nil
}

func toBuckets(fr *search.FacetResult) []domain.Bucket {
	out := []domain.Bucket{}
	if fr == nil || fr.Terms == nil {
		return out
	}
	for _, t := range fr.Terms.Terms() {
		out = append(out, domain.Bucket{Value: t.Term, Count: t.Count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// priceStats reads the stored price of every matched document.
func priceStats(ctx context.Context, idx bleve.Index, q query.Query, total int) (domain.PriceStats, error) {
	var stats domain.PriceStats
	if total == 0 {
		return stats, nil
	}

	sr := bleve.NewSearchRequestOptions(q, total, 0, false)
	sr.Fields = []string{domain.FieldPrice}
	res, err := idx.SearchInContext(ctx, sr)
	if err != nil {
		return stats, fmt.Errorf("bleve price stats: %w", err)
	}

	sum, n := 0.0, 0
	for _, hit := range res.Hits {
		p, ok := hit.Fields[domain.FieldPrice].(float64)
		if !ok {
			continue
		}
		if stats.Min == nil || p < *stats.Min {
			v := p
			stats.Min = &v
		}
		if stats.Max == nil || p > *stats.Max {
			v := p
			stats.Max = &v
		}
		sum += p
		n++
	}
	if n > 0 {
		avg := sum / float64(n)
		stats.Avg = &avg
	}
	return stats, nil
}
