// Package enginetest holds the behaviour every SearchEngine backend must
// share, expressed as a reusable test suite.
package enginetest

import (
	"time"

	"github.com/ammadakrram/storefront-search/internal/domain"
)

// Base is the creation time of the oldest fixture.
var Base = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// Fixtures returns five documents: four in stock and one sold-out hoodie.
// IDs sort in creation order.
func Fixtures() []domain.Document {
	return []domain.Document{
		{
			ID:          "p1",
			Name:        "Classic Tee",
			Description: "Soft cotton crew neck",
			Price:       24.99,
			Images:      []string{"tee.jpg"},
			Category:    string(domain.CategoryTShirts),
			Sizes:       []string{"S", "M"},
			Colors:      []string{"black", "white"},
			Stock:       12,
			Rating:      4.5,
			NumReviews:  31,
			DressStyle:  string(domain.DressStyleCasual),
			CreatedAt:   Base,
			UpdatedAt:   Base,
		},
		{
			ID:                 "p2",
			Name:               "Classic Denim Shorts",
			Description:        "Five pocket summer shorts",
			Price:              39.5,
			DiscountPrice:      ptr(31.6),
			DiscountPercentage: ptr(20),
			Images:             []string{"shorts.jpg"},
			Category:           string(domain.CategoryShorts),
			Sizes:              []string{"M", "L"},
			Colors:             []string{"blue"},
			Stock:              3,
			Rating:             4.1,
			NumReviews:         12,
			DressStyle:         string(domain.DressStyleCasual),
			CreatedAt:          Base.Add(time.Hour),
			UpdatedAt:          Base.Add(time.Hour),
		},
		{
			ID:          "p3",
			Name:        "Oxford Shirt",
			Description: "A classic button down for the office",
			Price:       59,
			Images:      []string{},
			Category:    string(domain.CategoryShirts),
			Sizes:       []string{"M"},
			Colors:      []string{"white"},
			Stock:       7,
			Rating:      4.8,
			NumReviews:  54,
			DressStyle:  string(domain.DressStyleFormal),
			CreatedAt:   Base.Add(2 * time.Hour),
			UpdatedAt:   Base.Add(2 * time.Hour),
		},
		{
			ID:          "p4",
			Name:        "Zip Hoodie",
			Description: "Fleece lined training hoodie",
			Price:       69,
			Images:      []string{"hoodie.jpg"},
			Category:    string(domain.CategoryHoodie),
			Sizes:       []string{"L", "XL"},
			Colors:      []string{"black"},
			Stock:       0,
			Rating:      4.2,
			NumReviews:  8,
			DressStyle:  string(domain.DressStyleGym),
			CreatedAt:   Base.Add(3 * time.Hour),
			UpdatedAt:   Base.Add(3 * time.Hour),
		},
		{
			ID:          "p5",
			Name:        "Slim Jeans",
			Description: "Stretch denim with a tapered leg",
			Price:       79.9,
			Images:      []string{"jeans.jpg"},
			Category:    string(domain.CategoryJeans),
			Sizes:       []string{"32", "34"},
			Colors:      []string{"blue"},
			Stock:       5,
			Rating:      3.9,
			NumReviews:  19,
			DressStyle:  string(domain.DressStyleCasual),
			CreatedAt:   Base.Add(4 * time.Hour),
			UpdatedAt:   Base.Add(4 * time.Hour),
		},
	}
}

// Request returns a first-page request of the given size with no filters.
func Request(query string, sort domain.SortMode, pageSize int) domain.SearchRequest {
	return domain.SearchRequest{Query: query, Sort: sort, Page: 1, PageSize: pageSize}
}

// IDs lists the document ids of a result page in order.
func IDs(page *domain.SearchPage) []string {
	out := make([]string, 0, len(page.Products))
	for _, p := range page.Products {
		out = append(out, p.ID)
	}
	return out
}
