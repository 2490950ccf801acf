package domain

// SortMode orders a result page.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
	SortRating    SortMode = "rating"
	SortNewest    SortMode = "newest"
)

// ParseSortMode maps caller input to a SortMode. Anything unrecognized,
// including "", is relevance.
func ParseSortMode(s string) SortMode {
	switch m := SortMode(s); m {
	case SortPriceAsc, SortPriceDesc, SortRating, SortNewest:
		return m
	default:
		return SortRelevance
	}
}

// SearchRequest is a normalized shopper query. Nil filters are not applied;
// empty Colors/Sizes are not applied.
type SearchRequest struct {
	Query      string
	Category   *string
	DressStyle *string
	MinPrice   *float64
	MaxPrice   *float64
	Colors     []string
	Sizes      []string
	Sort       SortMode
	Page       int
	PageSize   int
}

// Offset is the number of hits skipped before the page.
func (r SearchRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// ProductHit is one document in a result page.
type ProductHit struct {
	Document
	Score *float64 `json:"score,omitempty"`
}

// SearchPage is one page of results. Pages is ceil(Total/Limit).
type SearchPage struct {
	Products []ProductHit `json:"products"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	Pages    int          `json:"pages"`
	Limit    int          `json:"limit"`
	TookMs   int64        `json:"took_ms"`
}

// Suggestion is the minimal projection returned by autocomplete.
type Suggestion struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

// Bucket is one distinct facet value and how many documents carry it.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// PriceStats summarises price over the matched documents. All fields are
// nil when nothing matched.
type PriceStats struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
	Avg *float64 `json:"avg"`
}

// Facets groups the matched documents for filter navigation.
type Facets struct {
	Categories  []Bucket   `json:"categories"`
	Colors      []Bucket   `json:"colors"`
	Sizes       []Bucket   `json:"sizes"`
	DressStyles []Bucket   `json:"dress_styles"`
	PriceRange  PriceStats `json:"price_range"`
}

// Facet bucket limits.
const (
	CategoryBucketLimit   = 10
	ColorBucketLimit      = 20
	SizeBucketLimit       = 10
	DressStyleBucketLimit = 10
)
