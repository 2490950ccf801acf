package event

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammadakrram/storefront-search/internal/engine/memory"
	"github.com/ammadakrram/storefront-search/internal/indexsync"
	pkgkafka "github.com/ammadakrram/storefront-search/pkg/kafka"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConsumer() (*Consumer, *memory.Engine) {
	eng := memory.New()
	logger := newTestLogger()
	hooks := indexsync.NewHooks(indexsync.NewGateway(eng, logger), logger)
	return NewConsumer(hooks, logger), eng
}

func productData(id, name string, stock int) map[string]any {
	return map[string]any{
		"id":         id,
		"name":       name,
		"price":      "39.50",
		"category":   "Shorts",
		"colors":     []string{"blue"},
		"stock":      stock,
		"rating":     "4.1",
		"dressStyle": "Casual",
		"createdAt":  "2025-01-10T09:00:00Z",
		"updatedAt":  "2025-01-10T09:00:00Z",
	}
}

func newEvent(t *testing.T, eventType, id string, data any) *pkgkafka.Event {
	t.Helper()
	e, err := pkgkafka.NewEvent(eventType, id, "product", "product-service", data)
	require.NoError(t, err)
	return e
}

func TestHandle_CreatedIndexes(t *testing.T) {
	c, eng := newTestConsumer()

	err := c.Handle(context.Background(), newEvent(t, TopicProductCreated, "p2", productData("p2", "Denim Shorts", 3)))
	require.NoError(t, err)

	doc, ok := eng.Get("p2")
	require.True(t, ok)
	assert.Equal(t, "Denim Shorts", doc.Name)
	assert.Equal(t, 39.5, doc.Price)
	assert.Equal(t, 4.1, doc.Rating)
}

func TestHandle_UpdatedMergesIntoExisting(t *testing.T) {
	c, eng := newTestConsumer()
	ctx := context.Background()
	require.NoError(t, c.Handle(ctx, newEvent(t, TopicProductCreated, "p2", productData("p2", "Denim Shorts", 3))))

	require.NoError(t, c.Handle(ctx, newEvent(t, TopicProductUpdated, "p2", productData("p2", "Denim Shorts", 0))))

	doc, _ := eng.Get("p2")
	assert.Equal(t, 0, doc.Stock)
}

func TestHandle_UpdatedForUnknownProductIsNotIndexed(t *testing.T) {
	c, eng := newTestConsumer()

	err := c.Handle(context.Background(), newEvent(t, TopicProductUpdated, "p9", productData("p9", "Ghost", 1)))
	require.NoError(t, err)
	assert.Zero(t, eng.Len())
}

func TestHandle_Deleted(t *testing.T) {
	c, eng := newTestConsumer()
	ctx := context.Background()
	require.NoError(t, c.Handle(ctx, newEvent(t, TopicProductCreated, "p2", productData("p2", "Denim Shorts", 3))))

	require.NoError(t, c.Handle(ctx, newEvent(t, TopicProductDeleted, "p2", ProductDeletedData{ID: "p2"})))
	require.NoError(t, c.Handle(ctx, newEvent(t, TopicProductDeleted, "p2", ProductDeletedData{ID: "p2"})))
	assert.Zero(t, eng.Len())
}

func TestHandle_InvalidPayloads(t *testing.T) {
	c, _ := newTestConsumer()
	ctx := context.Background()

	bad := productData("p2", "Denim Shorts", 3)
	bad["category"] = "Hats"
	err := c.Handle(ctx, newEvent(t, TopicProductCreated, "p2", bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ecommerce.product.created data")

	err = c.Handle(ctx, newEvent(t, TopicProductDeleted, "", ProductDeletedData{}))
	require.Error(t, err)

	e := newEvent(t, TopicProductUpdated, "p2", nil)
	e.Data = []byte(`{"id": 12}`)
	assert.Error(t, c.Handle(ctx, e))
}

func TestHandle_IndexFailureIsNotRetried(t *testing.T) {
	c, eng := newTestConsumer()
	eng.SetPingError(assert.AnError)

	err := c.Handle(context.Background(), newEvent(t, TopicProductCreated, "p2", productData("p2", "Denim Shorts", 3)))
	assert.NoError(t, err)
}

func TestHandle_UnknownType(t *testing.T) {
	c, _ := newTestConsumer()
	assert.NoError(t, c.Handle(context.Background(), newEvent(t, "ecommerce.product.archived", "p1", map[string]any{})))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{
		"ecommerce.product.created",
		"ecommerce.product.updated",
		"ecommerce.product.deleted",
	}, Topics())
}
