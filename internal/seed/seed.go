// Package seed generates a deterministic storefront catalog for local runs
// and load tests.
package seed

import (
	"crypto/sha256"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammadakrram/storefront-search/internal/domain"
)

// Epoch anchors generated timestamps so re-runs yield identical products.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicUUID derives a stable UUID-shaped id from namespace and
// index, so re-seeding overwrites instead of duplicating.
func DeterministicUUID(namespace string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", namespace, index)))
	hex := fmt.Sprintf("%x", h[:16])
	// Version nibble 4 and variant bits 10xx.
	return fmt.Sprintf("%s-%s-4%s-%x%s-%s",
		hex[0:8],
		hex[8:12],
		hex[13:16],
		0x8|(h[8]&0x3),
		hex[17:20],
		hex[20:32],
	)
}

type categoryDef struct {
	category domain.Category
	weight   float64
	types    []string
	sizes    []string
	minPrice int // cents
	maxPrice int // cents
}

var categoryDefs = []categoryDef{
	{domain.CategoryTShirts, 0.30, []string{"Tee", "Graphic Tee", "Pocket Tee", "V-Neck Tee", "Polo"}, []string{"XS", "S", "M", "L", "XL"}, 1200, 4500},
	{domain.CategoryShirts, 0.20, []string{"Oxford Shirt", "Linen Shirt", "Flannel Shirt", "Denim Shirt"}, []string{"S", "M", "L", "XL"}, 2500, 8900},
	{domain.CategoryJeans, 0.20, []string{"Slim Jeans", "Straight Jeans", "Skinny Jeans", "Relaxed Jeans"}, []string{"28", "30", "32", "34", "36"}, 3900, 12900},
	{domain.CategoryShorts, 0.15, []string{"Denim Shorts", "Chino Shorts", "Cargo Shorts", "Running Shorts"}, []string{"S", "M", "L", "XL"}, 1500, 5500},
	{domain.CategoryHoodie, 0.15, []string{"Zip Hoodie", "Pullover Hoodie", "Fleece Hoodie"}, []string{"S", "M", "L", "XL", "XXL"}, 3500, 9900},
}

var prefixes = []string{
	"Classic", "Essential", "Vintage", "Urban", "Relaxed", "Premium", "Everyday",
	"Heritage", "Modern", "Washed", "Organic", "Summer", "Oversized", "Fitted",
}

var colors = []string{
	"black", "white", "navy", "grey", "blue", "red", "green", "beige", "olive", "burgundy",
}

var descriptionTemplates = []string{
	"A %s cut from soft breathable cotton for all-day comfort.",
	"Our best selling %s, built to last and easy to style.",
	"This %s pairs a clean silhouette with durable stitching.",
	"A wardrobe staple: the %s you will reach for every week.",
	"Lightweight %s with a tailored fit and a soft hand feel.",
}

// Generate returns n products drawn from rng, spread over the categories
// by weight. Equal seeds give equal catalogs.
func Generate(n int, rng *rand.Rand) []domain.Product {
	products := make([]domain.Product, 0, n)

	// How many products per category; the last one takes the remainder.
	counts := make([]int, len(categoryDefs))
	remaining := n
	for i, c := range categoryDefs {
		if i == len(categoryDefs)-1 {
			counts[i] = remaining
			continue
		}
		counts[i] = int(float64(n) * c.weight)
		remaining -= counts[i]
	}

	styles := domain.DressStyles()
	idx := 0
	for i, c := range categoryDefs {
		for j := 0; j < counts[i]; j++ {
			productType := c.types[rng.Intn(len(c.types))]
			prefix := prefixes[rng.Intn(len(prefixes))]
			color := colors[rng.Intn(len(colors))]

			cents := c.minPrice + rng.Intn(c.maxPrice-c.minPrice)
			// Storefront prices end in .99 or .50.
			cents = cents/100*100 + []int{99, 50}[rng.Intn(2)]
			price := decimal.New(int64(cents), -2)

			p := domain.Product{
				ID:          DeterministicUUID("storefront-product", idx),
				Name:        fmt.Sprintf("%s %s", prefix, productType),
				Description: fmt.Sprintf(descriptionTemplates[rng.Intn(len(descriptionTemplates))], productType),
				Price:       price,
				Images:      []string{fmt.Sprintf("https://cdn.storefront.local/products/%d.jpg", idx)},
				Category:    c.category,
				Sizes:       pick(rng, c.sizes, 1+rng.Intn(len(c.sizes))),
				Colors:      append([]string{color}, pick(rng, colors, rng.Intn(3))...),
				Stock:       stock(rng),
				Rating:      decimal.New(int64(30+rng.Intn(21)), -1),
				NumReviews:  rng.Intn(500),
				DressStyle:  styles[rng.Intn(len(styles))],
			}
			p.Colors = dedupe(p.Colors)

			// One in five products is on sale.
			if rng.Intn(5) == 0 {
				pct := 10 + 5*rng.Intn(9)
				discounted := price.Mul(decimal.NewFromInt(int64(100 - pct))).Div(decimal.NewFromInt(100)).Round(2)
				p.DiscountPrice = &discounted
				p.DiscountPercentage = &pct
			}

			// Spread creation over the 180 days after Epoch.
			p.CreatedAt = Epoch.Add(time.Duration(rng.Intn(180*24*60)) * time.Minute)
			p.UpdatedAt = p.CreatedAt.Add(time.Duration(rng.Intn(30*24)) * time.Hour)

			products = append(products, p)
			idx++
		}
	}
	return products
}

// stock is zero for roughly one product in ten.
func stock(rng *rand.Rand) int {
	if rng.Intn(10) == 0 {
		return 0
	}
	return 1 + rng.Intn(200)
}

// pick returns k distinct values from values in their original order.
func pick(rng *rand.Rand, values []string, k int) []string {
	if k > len(values) {
		k = len(values)
	}
	chosen := rng.Perm(len(values))[:k]
	mask := make([]bool, len(values))
	for _, i := range chosen {
		mask[i] = true
	}
	out := make([]string, 0, k)
	for i, v := range values {
		if mask[i] {
			out = append(out, v)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
