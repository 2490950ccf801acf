// Package event applies catalog product events to the search index.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ammadakrram/storefront-search/internal/catalog"
	"github.com/ammadakrram/storefront-search/internal/indexsync"
	pkgkafka "github.com/ammadakrram/storefront-search/pkg/kafka"
	"github.com/ammadakrram/storefront-search/pkg/validator"
)

// Product topics published by the catalog service. The event type of each
// message equals its topic.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// Topics lists every topic the consumer handles.
func Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// ProductDeletedData is the payload of a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id" validate:"required"`
}

// Consumer turns product events into index hook calls.
type Consumer struct {
	hooks  *indexsync.Hooks
	logger *slog.Logger
}

// NewConsumer creates a consumer driving hooks.
func NewConsumer(hooks *indexsync.Hooks, logger *slog.Logger) *Consumer {
	return &Consumer{hooks: hooks, logger: logger}
}

// Handle processes one event. Only malformed payloads return an error;
// index failures are absorbed by the hooks, so they are never redelivered.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated:
		p, err := decodeProduct(event)
		if err != nil {
			return err
		}
		c.hooks.AfterCreate(ctx, p.Product())
	case TopicProductUpdated:
		p, err := decodeProduct(event)
		if err != nil {
			return err
		}
		c.hooks.AfterUpdate(ctx, p.Product())
	case TopicProductDeleted:
		var data ProductDeletedData
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
		}
		if err := validator.Validate(data); err != nil {
			return fmt.Errorf("invalid %s data: %w", event.EventType, err)
		}
		c.hooks.AfterDelete(ctx, data.ID)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	c.logger.DebugContext(ctx, "product event applied",
		slog.String("event_type", event.EventType),
		slog.String("event_id", event.EventID),
		slog.String("product_id", event.AggregateID),
	)
	return nil
}

func decodeProduct(event *pkgkafka.Event) (catalog.ProductPayload, error) {
	var p catalog.ProductPayload
	if err := event.UnmarshalData(&p); err != nil {
		return p, fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if err := validator.Validate(p); err != nil {
		return p, fmt.Errorf("invalid %s data: %w", event.EventType, err)
	}
	return p, nil
}
