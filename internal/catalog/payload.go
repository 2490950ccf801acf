package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammadakrram/storefront-search/internal/domain"
)

// ProductPayload is a product as serialized by the catalog service, in its
// REST responses and in product events. Monetary values may arrive as JSON
// strings or numbers.
type ProductPayload struct {
	ID                 string           `json:"id" validate:"required"`
	Name               string           `json:"name" validate:"required"`
	Description        string           `json:"description"`
	Price              decimal.Decimal  `json:"price" validate:"gte=0"`
	DiscountPrice      *decimal.Decimal `json:"discountPrice" validate:"omitempty,gte=0"`
	DiscountPercentage *int             `json:"discountPercentage" validate:"omitempty,gte=0,lte=100"`
	Images             []string         `json:"images"`
	Category           string           `json:"category" validate:"required,oneof=T-shirts Shorts Shirts Hoodie Jeans"`
	Sizes              []string         `json:"sizes"`
	Colors             []string         `json:"colors"`
	Stock              int              `json:"stock" validate:"gte=0"`
	Rating             decimal.Decimal  `json:"rating" validate:"gte=0,lte=5"`
	NumReviews         int              `json:"numReviews" validate:"gte=0"`
	DressStyle         string           `json:"dressStyle" validate:"omitempty,oneof=Casual Formal Party Gym"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// Product converts the payload, applying the catalog's default dress style.
func (p ProductPayload) Product() domain.Product {
	style := domain.DressStyle(p.DressStyle)
	if style == "" {
		style = domain.DefaultDressStyle
	}
	return domain.Product{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Price:              p.Price,
		DiscountPrice:      p.DiscountPrice,
		DiscountPercentage: p.DiscountPercentage,
		Images:             p.Images,
		Category:           domain.Category(p.Category),
		Sizes:              p.Sizes,
		Colors:             p.Colors,
		Stock:              p.Stock,
		Rating:             p.Rating,
		NumReviews:         p.NumReviews,
		DressStyle:         style,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
