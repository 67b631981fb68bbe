// Package events defines the messages exchanged between services over the
// event stream. The catalog service is the pricing authority; cart replicas
// converge on its published values.
package events

import (
	"time"

	"github.com/google/uuid"
)

// PriceChange announces that the authority changed a product's price.
// Delivery is at-least-once with no cross-message ordering guarantee, so
// consumers must order by ChangedAt per product and discard stale events.
type PriceChange struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	OldPrice    float64   `json:"oldPrice"`
	NewPrice    float64   `json:"newPrice"`
	ChangedAt   time.Time `json:"changedAt"`
	ChangedBy   string    `json:"changedBy"`
	CategoryID  uuid.UUID `json:"categoryId"`
}
