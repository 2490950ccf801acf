// Package postgres reads the catalog straight from the storefront's
// PostgreSQL database.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/pkg/database"
)

// DefaultTable is the table the storefront ORM keeps products in.
const DefaultTable = "Products"

// Numeric and enum columns are read as text so that decimals keep their
// exact value and enums need no registered type.
const selectColumns = `"id"::text, "name", "description", "price"::text, "discountPrice"::text,
	"discountPercentage", "images", "category"::text, "sizes", "colors", "stock",
	"rating"::text, "numReviews", "dressStyle"::text, "createdAt", "updatedAt"`

// Source pages through the products table by primary key.
type Source struct {
	db     database.DBTX
	query  string
	logger *slog.Logger
}

// New returns a source reading table through db. An empty table means
// DefaultTable.
func New(db database.DBTX, table string, logger *slog.Logger) *Source {
	if table == "" {
		table = DefaultTable
	}
	query := fmt.Sprintf(`SELECT %s FROM %s
	WHERE ($1::uuid IS NULL OR "id" > $1::uuid)
	ORDER BY "id"
	LIMIT $2`, selectColumns, pgx.Identifier{table}.Sanitize())

	return &Source{db: db, query: query, logger: logger}
}

// Ping checks the database connection.
func (s *Source) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping catalog database: %w", err)
	}
	return nil
}

// Scan implements catalog.Source with keyset pagination, so rows inserted
// behind the cursor during a scan are not read twice.
func (s *Source) Scan(ctx context.Context, batchSize int, fn func([]domain.Product) error) error {
	if batchSize <= 0 {
		return catalog.ErrInvalidBatchSize
	}

	var after *string
	for {
		batch, err := s.page(ctx, after, batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
		last := batch[len(batch)-1].ID
		after = &last
	}
}

func (s *Source) page(ctx context.Context, after *string, limit int) (products []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "ScanProducts", s.query)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, s.query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products = make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func scanProduct(rows pgx.Rows) (domain.Product, error) {
	var (
		p                    domain.Product
		price                string
		discount, rating     *string
		stock, numReviews    *int
		category             string
		dressStyle           *string
		createdAt, updatedAt time.Time
	)
	err := rows.Scan(
		&p.ID, &p.Name, &p.Description, &price, &discount,
		&p.DiscountPercentage, &p.Images, &category, &p.Sizes, &p.Colors, &stock,
		&rating, &numReviews, &dressStyle, &createdAt, &updatedAt,
	)
	if err != nil {
		return p, fmt.Errorf("scan product: %w", err)
	}

	if p.Price, err = decimal.NewFromString(price); err != nil {
		return p, fmt.Errorf("product %s: parse price %q: %w", p.ID, price, err)
	}
	// stock, rating and numReviews are nullable columns that default to 0.
	if rating != nil {
		if p.Rating, err = decimal.NewFromString(*rating); err != nil {
			return p, fmt.Errorf("product %s: parse rating %q: %w", p.ID, *rating, err)
		}
	}
	if stock != nil {
		p.Stock = *stock
	}
	if numReviews != nil {
		p.NumReviews = *numReviews
	}
	if discount != nil {
		d, err := decimal.NewFromString(*discount)
		if err != nil {
			return p, fmt.Errorf("product %s: parse discount price %q: %w", p.ID, *discount, err)
		}
		p.DiscountPrice = &d
	}

	p.Category = domain.Category(category)
	p.DressStyle = domain.DefaultDressStyle
	if dressStyle != nil && *dressStyle != "" {
		p.DressStyle = domain.DressStyle(*dressStyle)
	}
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return p, nil
}

var _ catalog.Source = (*Source)(nil)
