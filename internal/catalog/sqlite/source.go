// Package sqlite is a catalog source over a SQLite file, used for local
// development and demos where no PostgreSQL catalog is available.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/domain"
	"github.com/ammadakrram/storefront-search/pkg/database"
)

// Schema mirrors the storefront Products table. Array columns hold JSON
// text, decimals are TEXT and timestamps RFC 3339 TEXT.
const Schema = `
CREATE TABLE IF NOT EXISTS Products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  discountPrice TEXT,
  discountPercentage INTEGER,
  images TEXT NOT NULL DEFAULT '[]',
  category TEXT NOT NULL,
  sizes TEXT NOT NULL DEFAULT '[]',
  colors TEXT NOT NULL DEFAULT '[]',
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  rating TEXT NOT NULL DEFAULT '0',
  numReviews INTEGER NOT NULL DEFAULT 0,
  dressStyle TEXT,
  createdAt TEXT NOT NULL,
  updatedAt TEXT NOT NULL
);`

const scanQuery = `
SELECT id, name, description, price, discountPrice, discountPercentage, images,
       category, sizes, colors, stock, rating, numReviews, dressStyle, createdAt, updatedAt
FROM Products
WHERE id > ?
ORDER BY id
LIMIT ?`

const upsertQuery = `
INSERT INTO Products(id, name, description, price, discountPrice, discountPercentage, images,
                     category, sizes, colors, stock, rating, numReviews, dressStyle, createdAt, updatedAt)
VALUES(:id, :name, :description, :price, :discountPrice, :discountPercentage, :images,
       :category, :sizes, :colors, :stock, :rating, :numReviews, :dressStyle, :createdAt, :updatedAt)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name, description = excluded.description, price = excluded.price,
  discountPrice = excluded.discountPrice, discountPercentage = excluded.discountPercentage,
  images = excluded.images, category = excluded.category, sizes = excluded.sizes,
  colors = excluded.colors, stock = excluded.stock, rating = excluded.rating,
  numReviews = excluded.numReviews, dressStyle = excluded.dressStyle,
  createdAt = excluded.createdAt, updatedAt = excluded.updatedAt`

type productRow struct {
	ID                 string         `db:"id"`
	Name               string         `db:"name"`
	Description        string         `db:"description"`
	Price              string         `db:"price"`
	DiscountPrice      sql.NullString `db:"discountPrice"`
	DiscountPercentage sql.NullInt64  `db:"discountPercentage"`
	Images             string         `db:"images"`
	Category           string         `db:"category"`
	Sizes              string         `db:"sizes"`
	Colors             string         `db:"colors"`
	Stock              int            `db:"stock"`
	Rating             string         `db:"rating"`
	NumReviews         int            `db:"numReviews"`
	DressStyle         sql.NullString `db:"dressStyle"`
	CreatedAt          string         `db:"createdAt"`
	UpdatedAt          string         `db:"updatedAt"`
}

// Source reads products from a SQLite database.
type Source struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at dsn and ensures the schema.
// ":memory:" gives a private in-memory catalog.
func Open(ctx context.Context, dsn string) (*Source, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite catalog: %w", err)
	}
	// An in-memory database lives in a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite catalog: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &Source{db: db}, nil
}

// Close closes the database.
func (s *Source) Close() error {
	return s.db.Close()
}

// Ping checks the database.
func (s *Source) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Scan implements catalog.Source, paging by id.
func (s *Source) Scan(ctx context.Context, batchSize int, fn func([]domain.Product) error) error {
	if batchSize <= 0 {
		return catalog.ErrInvalidBatchSize
	}

	after := ""
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
		after = batch[len(batch)-1].ID
	}
}

func (s *Source) page(ctx context.Context, after string, limit int) (products []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "sqlite", "ScanProducts", scanQuery)
	defer func() { end(err) }()

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, scanQuery, after, limit); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	products = make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		p, err := r.product()
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", r.ID, err)
		}
		products = append(products, p)
	}
	return products, nil
}

// Put inserts or replaces products.
func (s *Source) Put(ctx context.Context, products ...domain.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range products {
		row, err := toRow(p)
		if err != nil {
			return fmt.Errorf("product %s: %w", p.ID, err)
		}
		if _, err := tx.NamedExecContext(ctx, upsertQuery, row); err != nil {
			return fmt.Errorf("put product %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put: %w", err)
	}
	return nil
}

// Delete removes a product by id.
func (s *Source) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM Products WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

func (r productRow) product() (domain.Product, error) {
	p := domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    domain.Category(r.Category),
		Stock:       r.Stock,
		NumReviews:  r.NumReviews,
		DressStyle:  domain.DefaultDressStyle,
	}

	var err error
	if p.Price, err = decimal.NewFromString(r.Price); err != nil {
		return p, fmt.Errorf("parse price %q: %w", r.Price, err)
	}
	if p.Rating, err = decimal.NewFromString(r.Rating); err != nil {
		return p, fmt.Errorf("parse rating %q: %w", r.Rating, err)
	}
	if r.DiscountPrice.Valid {
		d, err := decimal.NewFromString(r.DiscountPrice.String)
		if err != nil {
			return p, fmt.Errorf("parse discount price %q: %w", r.DiscountPrice.String, err)
		}
		p.DiscountPrice = &d
	}
	if r.DiscountPercentage.Valid {
		pct := int(r.DiscountPercentage.Int64)
		p.DiscountPercentage = &pct
	}
	if r.DressStyle.Valid && r.DressStyle.String != "" {
		p.DressStyle = domain.DressStyle(r.DressStyle.String)
	}

	arrays := []struct {
		col string
		dst *[]string
	}{{r.Images, &p.Images}, {r.Sizes, &p.Sizes}, {r.Colors, &p.Colors}}
	for _, a := range arrays {
		if err := json.Unmarshal([]byte(a.col), a.dst); err != nil {
			return p, fmt.Errorf("decode array %q: %w", a.col, err)
		}
	}

	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, r.CreatedAt); err != nil {
		return p, fmt.Errorf("parse createdAt: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, r.UpdatedAt); err != nil {
		return p, fmt.Errorf("parse updatedAt: %w", err)
	}
	return p, nil
}

func toRow(p domain.Product) (productRow, error) {
	r := productRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Category:    string(p.Category),
		Stock:       p.Stock,
		Rating:      p.Rating.String(),
		NumReviews:  p.NumReviews,
		DressStyle:  sql.NullString{String: string(p.DressStyle), Valid: p.DressStyle != ""},
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p.DiscountPrice != nil {
		r.DiscountPrice = sql.NullString{String: p.DiscountPrice.String(), Valid: true}
	}
	if p.DiscountPercentage != nil {
		r.DiscountPercentage = sql.NullInt64{Int64: int64(*p.DiscountPercentage), Valid: true}
	}

	arrays := []struct {
		in  []string
		out *string
	}{{p.Images, &r.Images}, {p.Sizes, &r.Sizes}, {p.Colors, &r.Colors}}
	for _, a := range arrays {
		in := a.in
		if in == nil {
			in = []string{}
		}
		raw, err := json.Marshal(in)
		if err != nil {
			return r, err
		}
		*a.out = string(raw)
	}
	return r, nil
}

var _ catalog.Source = (*Source)(nil)
