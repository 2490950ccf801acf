package domain

import "time"

// Document is the flat, denormalized form of a Product held by the search
// index. Its ID always equals the product ID.
type Document struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Price              float64   `json:"price"`
	DiscountPrice      *float64  `json:"discount_price"`
	DiscountPercentage *int      `json:"discount_percentage"`
	Images             []string  `json:"images"`
	Category           string    `json:"category"`
	Sizes              []string  `json:"sizes"`
	Colors             []string  `json:"colors"`
	Stock              int       `json:"stock"`
	Rating             float64   `json:"rating"`
	NumReviews         int       `json:"num_reviews"`
	DressStyle         string    `json:"dress_style"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Indexed field names shared by every engine.
const (
	FieldID                 = "id"
	FieldName               = "name"
	FieldDescription        = "description"
	FieldPrice              = "price"
	FieldDiscountPrice      = "discount_price"
	FieldDiscountPercentage = "discount_percentage"
	FieldImages             = "images"
	FieldCategory           = "category"
	FieldSizes              = "sizes"
	FieldColors             = "colors"
	FieldStock              = "stock"
	FieldRating             = "rating"
	FieldNumReviews         = "num_reviews"
	FieldDressStyle         = "dress_style"
	FieldCreatedAt          = "created_at"
	FieldUpdatedAt          = "updated_at"
)

// InStock reports whether the document is visible to shoppers.
func (d Document) InStock() bool {
	return d.Stock > 0
}

// FirstImage returns the first image URL or "".
func (d Document) FirstImage() string {
	if len(d.Images) == 0 {
		return ""
	}
	return d.Images[0]
}
