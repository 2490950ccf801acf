package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var productColumns = []string{
	"id", "name", "description", "price", "discountPrice",
	"discountPercentage", "images", "category", "sizes", "colors", "stock",
	"rating", "numReviews", "dressStyle", "createdAt", "updatedAt",
}

func productRow(id, name, price string, discount *string, style *string) []any {
	var pct *int
	if discount != nil {
		pct = intPtr(20)
	}
	return []any{
		id, name, "Soft cotton", price, discount,
		pct, []string{"a.jpg"}, "T-shirts", []string{"M"}, []string{"black"}, 4,
		"4.5", 12, style, now, now,
	}
}

func collect(t *testing.T, s *Source, batchSize int) ([][]domain.Product, error) {
	t.Helper()
	var batches [][]domain.Product
	err := s.Scan(context.Background(), batchSize, func(b []domain.Product) error {
		batches = append(batches, b)
		return nil
	})
	return batches, err
}

func newSource(mock pgxmock.PgxPoolIface) *Source {
	return New(mock, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScan_PagesByKey(t *testing.T) {
	mock := newMock(t)
	id1 := "0b6d2c1e-0000-4000-8000-000000000001"
	id2 := "0b6d2c1e-0000-4000-8000-000000000002"
	id3 := "0b6d2c1e-0000-4000-8000-000000000003"

	mock.ExpectQuery(`SELECT .+ FROM "Products"`).
		WithArgs((*string)(nil), 2).
		WillReturnRows(pgxmock.NewRows(productColumns).
			AddRow(productRow(id1, "Classic Tee", "24.99", strPtr("19.99"), strPtr("Gym"))...).
			AddRow(productRow(id2, "Oxford Shirt", "59.00", nil, nil)...))
	mock.ExpectQuery(`SELECT .+ FROM "Products"`).
		WithArgs(strPtr(id2), 2).
		WillReturnRows(pgxmock.NewRows(productColumns).
			AddRow(productRow(id3, "Slim Jeans", "79.90", nil, strPtr(""))...))

	batches, err := collect(t, newSource(mock), 2)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Len(t, batches[0], 2)
	require.Len(t, batches[1], 1)

	first := batches[0][0]
	assert.Equal(t, id1, first.ID)
	assert.True(t, decimal.RequireFromString("24.99").Equal(first.Price))
	require.NotNil(t, first.DiscountPrice)
	assert.True(t, decimal.RequireFromString("19.99").Equal(*first.DiscountPrice))
	assert.Equal(t, 20, *first.DiscountPercentage)
	assert.Equal(t, domain.DressStyleGym, first.DressStyle)
	assert.Equal(t, domain.CategoryTShirts, first.Category)
	assert.True(t, decimal.RequireFromString("4.5").Equal(first.Rating))
	assert.Equal(t, 4, first.Stock)
	assert.Equal(t, 12, first.NumReviews)

	assert.Nil(t, batches[0][1].DiscountPrice)
	assert.Equal(t, domain.DressStyleCasual, batches[0][1].DressStyle)
	assert.Equal(t, domain.DressStyleCasual, batches[1][0].DressStyle)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_FullLastPageTriggersOneMoreQuery(t *testing.T) {
	mock := newMock(t)
	id1 := "0b6d2c1e-0000-4000-8000-000000000001"

	mock.ExpectQuery(`SELECT .+ FROM "Products"`).
		WithArgs((*string)(nil), 1).
		WillReturnRows(pgxmock.NewRows(productColumns).
			AddRow(productRow(id1, "Classic Tee", "24.99", nil, nil)...))
	mock.ExpectQuery(`SELECT .+ FROM "Products"`).
		WithArgs(strPtr(id1), 1).
		WillReturnRows(pgxmock.NewRows(productColumns))

	batches, err := collect(t, newSource(mock), 1)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_EmptyCatalog(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM "Products"`).
		WithArgs((*string)(nil), 500).
		WillReturnRows(pgxmock.NewRows(productColumns))

	batches, err := collect(t, newSource(mock), 500)
	require.NoError(t, err)
	assert.Empty(t, batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_CustomTable(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM "catalog_products"`).
		WithArgs((*string)(nil), 10).
		WillReturnRows(pgxmock.NewRows(productColumns))

	s := New(mock, "catalog_products", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := collect(t, s, 10)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM "Products"`).
		WithArgs((*string)(nil), 10).
		WillReturnError(errors.New("connection reset"))

	_, err := collect(t, newSource(mock), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query products")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_BadDecimal(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM "Products"`).
		WithArgs((*string)(nil), 10).
		WillReturnRows(pgxmock.NewRows(productColumns).
			AddRow(productRow("p1", "Classic Tee", "not-a-number", nil, nil)...))

	_, err := collect(t, newSource(mock), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse price")
}

func TestScan_NullCountersDefaultToZero(t *testing.T) {
	mock := newMock(t)
	row := productRow("0b6d2c1e-0000-4000-8000-000000000001", "Classic Tee", "24.99", nil, nil)
	row[10], row[11], row[12] = nil, nil, nil // stock, rating, numReviews

	mock.ExpectQuery(`SELECT .+ FROM "Products"`).
		WithArgs((*string)(nil), 10).
		WillReturnRows(pgxmock.NewRows(productColumns).AddRow(row...))

	batches, err := collect(t, newSource(mock), 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	p := batches[0][0]
	assert.Zero(t, p.Stock)
	assert.True(t, p.Rating.IsZero())
	assert.Zero(t, p.NumReviews)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_CallbackErrorStops(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM "Products"`).
		WithArgs((*string)(nil), 1).
		WillReturnRows(pgxmock.NewRows(productColumns).
			AddRow(productRow("p1", "Classic Tee", "24.99", nil, nil)...))

	stop := errors.New("stop")
	err := newSource(mock).Scan(context.Background(), 1, func([]domain.Product) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScan_InvalidBatchSize(t *testing.T) {
	mock := newMock(t)
	_, err := collect(t, newSource(mock), 0)
	assert.ErrorIs(t, err, catalog.ErrInvalidBatchSize)
}

func TestPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	err = newSource(mock).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping catalog database")
	assert.NoError(t, mock.ExpectationsWereMet())
}
