package seed

import (
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/pkg/validator"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestDeterministicUUID(t *testing.T) {
	a := DeterministicUUID("storefront-product", 7)
	assert.Equal(t, a, DeterministicUUID("storefront-product", 7))
	assert.NotEqual(t, a, DeterministicUUID("storefront-product", 8))
	assert.Regexp(t, uuidPattern, a)
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(50, rand.New(rand.NewSource(42)))
	b := Generate(50, rand.New(rand.NewSource(42)))
	assert.Equal(t, a, b)
}

func TestGenerate_Shape(t *testing.T) {
	products := Generate(1000, rand.New(rand.NewSource(1)))
	require.Len(t, products, 1000)

	ids := make(map[string]bool)
	perCategory := make(map[domain.Category]int)
	outOfStock := 0
	for _, p := range products {
		assert.False(t, ids[p.ID], "duplicate id %s", p.ID)
		ids[p.ID] = true
		perCategory[p.Category]++
		if p.Stock == 0 {
			outOfStock++
		}

		assert.True(t, p.Price.IsPositive())
		assert.Equal(t, int32(-2), p.Price.Exponent())
		if p.DiscountPrice != nil {
			assert.True(t, p.DiscountPrice.LessThan(p.Price))
			require.NotNil(t, p.DiscountPercentage)
		}
		assert.NotEmpty(t, p.Sizes)
		assert.NotEmpty(t, p.Colors)
		assert.False(t, p.UpdatedAt.Before(p.CreatedAt))
	}

	assert.Len(t, perCategory, len(domain.Categories()))
	assert.Equal(t, 300, perCategory[domain.CategoryTShirts])
	assert.Greater(t, outOfStock, 0)
}

// Generated products must pass the same validation as catalog payloads.
func TestGenerate_ValidPayloads(t *testing.T) {
	for _, p := range Generate(100, rand.New(rand.NewSource(3))) {
		payload := catalog.ProductPayload{
			ID:                 p.ID,
			Name:               p.Name,
			Price:              p.Price,
			DiscountPercentage: p.DiscountPercentage,
			Category:           string(p.Category),
			Stock:              p.Stock,
			NumReviews:         p.NumReviews,
			DressStyle:         string(p.DressStyle),
		}
		assert.NoError(t, validator.Validate(payload), p.ID)
	}
}
