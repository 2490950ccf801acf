package elasticsearch

import (
	"github.com/ammadakrram/storefront-search/internal/domain"
)

// Aggregation names in the filters request.
const (
	aggCategories  = "categories"
	aggColors      = "colors"
	aggSizes       = "sizes"
	aggDressStyles = "dress_styles"
	aggPriceStats  = "price_stats"
)

// matchClause is the full-text part shared by search and aggregation.
func matchClause(query string) map[string]any {
	if query == "" {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{
		"multi_match": map[string]any{
			"query":     query,
			"fields":    []string{domain.FieldName + "^3", domain.FieldDescription},
			"type":      "best_fields",
			"fuzziness": "AUTO",
		},
	}
}

func inStockFilter() map[string]any {
	return map[string]any{
		"range": map[string]any{
			domain.FieldStock: map[string]any{"gt": 0},
		},
	}
}

// buildFilters returns the structured filters of req followed by the
// in-stock filter, which is always present.
func buildFilters(req domain.SearchRequest) []any {
	var filters []any

	if req.Category != nil {
		filters = append(filters, map[string]any{
			"term": map[string]any{domain.FieldCategory: *req.Category},
		})
	}
	if req.DressStyle != nil {
		filters = append(filters, map[string]any{
			"term": map[string]any{domain.FieldDressStyle: *req.DressStyle},
		})
	}
	if req.MinPrice != nil || req.MaxPrice != nil {
		bounds := map[string]any{}
		if req.MinPrice != nil {
			bounds["gte"] = *req.MinPrice
		}
		if req.MaxPrice != nil {
			bounds["lte"] = *req.MaxPrice
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{domain.FieldPrice: bounds},
		})
	}
	if len(req.Colors) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{domain.FieldColors: req.Colors},
		})
	}
	if len(req.Sizes) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{domain.FieldSizes: req.Sizes},
		})
	}

	return append(filters, inStockFilter())
}

// buildSort returns the sort clause for mode. Every clause ends with an id
// tiebreaker so that offset pagination over an unchanged index is stable.
func buildSort(mode domain.SortMode, hasQuery bool) []any {
	var primary map[string]any
	switch mode {
	case domain.SortPriceAsc:
		primary = map[string]any{domain.FieldPrice: "asc"}
	case domain.SortPriceDesc:
		primary = map[string]any{domain.FieldPrice: "desc"}
	case domain.SortRating:
		primary = map[string]any{domain.FieldRating: "desc"}
	case domain.SortNewest:
		primary = map[string]any{domain.FieldCreatedAt: "desc"}
	default:
		if hasQuery {
			primary = map[string]any{"_score": "desc"}
		} else {
			primary = map[string]any{domain.FieldCreatedAt: "desc"}
		}
	}
	return []any{primary, map[string]any{domain.FieldID: "asc"}}
}

// BuildSearchQuery translates a normalized request into the search body.
func BuildSearchQuery(req domain.SearchRequest) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []any{matchClause(req.Query)},
				"filter": buildFilters(req),
			},
		},
		"sort":             buildSort(req.Sort, req.Query != ""),
		"from":             req.Offset(),
		"size":             req.PageSize,
		"track_total_hits": true,
	}
}

// BuildSuggestQuery matches prefix against the n-gram name field.
func BuildSuggestQuery(prefix string, limit int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"match": map[string]any{
							domain.FieldName: map[string]any{
								"query":     prefix,
								"fuzziness": "AUTO",
							},
						},
					},
				},
				"filter": []any{inStockFilter()},
			},
		},
		"size":    limit,
		"_source": []string{domain.FieldID, domain.FieldName, domain.FieldPrice, domain.FieldImages},
		"sort": []any{
			map[string]any{"_score": "desc"},
			map[string]any{domain.FieldID: "asc"},
		},
	}
}

func termsAgg(field string, size int) map[string]any {
	return map[string]any{
		"terms": map[string]any{
			"field": field,
			"size":  size,
			"order": []any{
				map[string]any{"_count": "desc"},
				map[string]any{"_key": "asc"},
			},
		},
	}
}

// BuildAggregationQuery computes facets over the in-stock documents that
// match query. Structured filters do not narrow the facets.
func BuildAggregationQuery(query string) map[string]any {
	return map[string]any{
		"size": 0,
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []any{matchClause(query)},
				"filter": []any{inStockFilter()},
			},
		},
		"aggs": map[string]any{
			aggCategories:  termsAgg(domain.FieldCategory, domain.CategoryBucketLimit),
			aggColors:      termsAgg(domain.FieldColors, domain.ColorBucketLimit),
			aggSizes:       termsAgg(domain.FieldSizes, domain.SizeBucketLimit),
			aggDressStyles: termsAgg(domain.FieldDressStyle, domain.DressStyleBucketLimit),
			aggPriceStats: map[string]any{
				"stats": map[string]any{"field": domain.FieldPrice},
			},
		},
	}
}
