package models

import (
	"time"

	"github.com/google/uuid"
)

// LineItem is a cart's replica of a product at some quantity. UnitPrice is an
// eventually-consistent copy of the catalog's price; PriceChangedAt records
// the authority timestamp of the last applied price so stale events can be
// detected. Subtotal always equals UnitPrice × Quantity.
type LineItem struct {
	ProductID      uuid.UUID `json:"productId"`
	ProductName    string    `json:"productName"`
	UnitPrice      float64   `json:"unitPrice"`
	Quantity       int       `json:"quantity"`
	Subtotal       float64   `json:"subtotal"`
	PriceChangedAt time.Time `json:"priceChangedAt"`
}

// Cart is one shopper's cart.
type Cart struct {
	ID     uuid.UUID  `json:"id"`
	UserID string     `json:"userId"`
	Items  []LineItem `json:"items"`
	Total  float64    `json:"total"`
}

// ComputeTotal sums the item subtotals.
func (c *Cart) ComputeTotal() {
	total := 0.0
	for _, item := range c.Items {
		total += item.Subtotal
	}
	c.Total = total
}

// AddItemRequest is the payload for adding or bumping a line item.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// UpdateQuantityRequest is the payload for setting a line item's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}
