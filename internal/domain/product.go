package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the fixed set of storefront product categories.
type Category string

const (
	CategoryTShirts Category = "T-shirts"
	CategoryShorts  Category = "Shorts"
	CategoryShirts  Category = "Shirts"
	CategoryHoodie  Category = "Hoodie"
	CategoryJeans   Category = "Jeans"
)

// Categories lists every valid category.
func Categories() []Category {
	return []Category{CategoryTShirts, CategoryShorts, CategoryShirts, CategoryHoodie, CategoryJeans}
}

// DressStyle is the fixed set of dress styles.
type DressStyle string

const (
	DressStyleCasual DressStyle = "Casual"
	DressStyleFormal DressStyle = "Formal"
	DressStyleParty  DressStyle = "Party"
	DressStyleGym    DressStyle = "Gym"
)

// DefaultDressStyle is applied by the catalog when none is given.
const DefaultDressStyle = DressStyleCasual

// DressStyles lists every valid dress style.
func DressStyles() []DressStyle {
	return []DressStyle{DressStyleCasual, DressStyleFormal, DressStyleParty, DressStyleGym}
}

// Product is a catalog row as owned by the relational store. The search
// side only ever reads it.
type Product struct {
	ID                 string
	Name               string
	Description        string
	Price              decimal.Decimal
	DiscountPrice      *decimal.Decimal
	DiscountPercentage *int
	Images             []string
	Category           Category
	Sizes              []string
	Colors             []string
	Stock              int
	Rating             decimal.Decimal
	NumReviews         int
	DressStyle         DressStyle
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
