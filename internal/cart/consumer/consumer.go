// Package consumer applies catalog price change events to cart state.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"storefront/internal/cart/store"
	"storefront/internal/events"
	"storefront/internal/platform/kafka"
)

// Recorder receives propagation outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	PriceEventApplied()
	PriceEventStale()
	PriceEventMalformed()
}

// NopRecorder discards outcomes.
type NopRecorder struct{}

func (NopRecorder) PriceEventApplied()   {}
func (NopRecorder) PriceEventStale()     {}
func (NopRecorder) PriceEventMalformed() {}

// PriceChangeHandler folds price change events into the cart store. Apply
// order does not matter: the store only accepts an event strictly newer than
// the price a line item already carries, so replays and out-of-order
// deliveries converge on the latest authoritative price.
type PriceChangeHandler struct {
	store    store.Store
	logger   *slog.Logger
	recorder Recorder
}

func NewPriceChangeHandler(s store.Store, logger *slog.Logger, recorder Recorder) *PriceChangeHandler {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &PriceChangeHandler{store: s, logger: logger, recorder: recorder}
}

var _ kafka.MessageHandler = (*PriceChangeHandler)(nil)

// Handle implements kafka.MessageHandler. Malformed payloads are surfaced as
// errors so the delivery layer decides their fate; store failures are also
// surfaced so the record is redelivered. Handle is idempotent: re-applying a
// delivered event changes nothing.
func (h *PriceChangeHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	ctx, span := otel.Tracer("storefront/cart/consumer").Start(ctx, "cart.price_change")
	defer span.End()

	var event events.PriceChange
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.recorder.PriceEventMalformed()
		return fmt.Errorf("decode price change: %w", err)
	}
	span.SetAttributes(attribute.String("product.id", event.ProductID.String()))

	applied, err := h.store.ApplyPriceChange(ctx, event.ProductID, event.NewPrice, event.ChangedAt)
	if err != nil {
		return fmt.Errorf("apply price change for %s: %w", event.ProductID, err)
	}
	if applied == 0 {
		h.recorder.PriceEventStale()
		h.logger.InfoContext(ctx, "price change already reflected",
			"product_id", event.ProductID,
			"changed_at", event.ChangedAt,
		)
		return nil
	}

	h.recorder.PriceEventApplied()
	h.logger.InfoContext(ctx, "price change applied",
		"product_id", event.ProductID,
		"old_price", event.OldPrice,
		"new_price", event.NewPrice,
		"items_updated", applied,
	)
	return nil
}
