// Package projector turns catalog products into search documents.
package projector

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ammadakrram/storefront-search/internal/domain"
)

// pricePlaces is the scale of every monetary and rating value in the index.
const pricePlaces = 2

// Project maps p to its index document. It is pure: equal products always
// yield equal documents, and the document shares no slices with p.
func Project(p domain.Product) domain.Document {
	return domain.Document{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Price:              toFloat(p.Price),
		DiscountPrice:      toFloatPtr(p.DiscountPrice),
		DiscountPercentage: copyInt(p.DiscountPercentage),
		Images:             copyStrings(p.Images),
		Category:           string(p.Category),
		Sizes:              copyStrings(p.Sizes),
		Colors:             copyStrings(p.Colors),
		Stock:              p.Stock,
		Rating:             toFloat(p.Rating),
		NumReviews:         p.NumReviews,
		DressStyle:         string(p.DressStyle),
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}

// ProjectAll projects a batch, preserving order.
func ProjectAll(products []domain.Product) []domain.Document {
	docs := make([]domain.Document, len(products))
	for i := range products {
		docs[i] = Project(products[i])
	}
	return docs
}

// Fields returns every indexed field of d except the id, keyed by index
// field name, for use as a partial update body.
func Fields(d domain.Document) map[string]any {
	return map[string]any{
		domain.FieldName:               d.Name,
		domain.FieldDescription:        d.Description,
		domain.FieldPrice:              d.Price,
		domain.FieldDiscountPrice:      d.DiscountPrice,
		domain.FieldDiscountPercentage: d.DiscountPercentage,
		domain.FieldImages:             d.Images,
		domain.FieldCategory:           d.Category,
		domain.FieldSizes:              d.Sizes,
		domain.FieldColors:             d.Colors,
		domain.FieldStock:              d.Stock,
		domain.FieldRating:             d.Rating,
		domain.FieldNumReviews:         d.NumReviews,
		domain.FieldDressStyle:         d.DressStyle,
		domain.FieldCreatedAt:          d.CreatedAt,
		domain.FieldUpdatedAt:          d.UpdatedAt,
	}
}

// Merge overlays fields onto d through its JSON form, the way a partial
// update document is applied by the cluster. The id is never changed.
func Merge(d domain.Document, fields map[string]any) (domain.Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return d, fmt.Errorf("merge %s: %w", d.ID, err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return d, fmt.Errorf("merge %s: %w", d.ID, err)
	}
	for k, v := range fields {
		m[k] = v
	}
	if raw, err = json.Marshal(m); err != nil {
		return d, fmt.Errorf("merge %s: %w", d.ID, err)
	}

	var out domain.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return d, fmt.Errorf("merge %s: %w", d.ID, err)
	}
	out.ID = d.ID
	return out, nil
}

func toFloat(d decimal.Decimal) float64 {
	return d.Round(pricePlaces).InexactFloat64()
}

func toFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := toFloat(*d)
	return &f
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
