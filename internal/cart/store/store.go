// Package store persists carts and their line items. Two implementations
// exist: the in-memory development store and the postgres store. Both
// serialize concurrent writes to a line item so that a price update and a
// quantity update can never leave subtotal inconsistent with
// unitPrice × quantity, and both implement the apply-if-newer contract for
// price propagation.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront/internal/cart/models"
)

// Store is the persistence surface shared by the cart service and the price
// propagation consumer.
type Store interface {
	// CreateCart makes an empty cart for a user.
	CreateCart(ctx context.Context, userID string) (*models.Cart, error)

	// GetCart returns a cart with total recomputed, or sentinel.ErrNotFound.
	GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)

	// GetCartByUser returns the user's cart, or sentinel.ErrNotFound.
	GetCartByUser(ctx context.Context, userID string) (*models.Cart, error)

	// UpsertItem adds the quantity to an existing line item or inserts a new
	// one priced at unitPrice with the given authority timestamp.
	UpsertItem(ctx context.Context, cartID uuid.UUID, item models.LineItem) error

	// UpdateQuantity sets a line item's quantity and recomputes its subtotal
	// atomically. sentinel.ErrNotFound if the item is absent.
	UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error

	// ApplyPriceChange applies newPrice to every line item for productID
	// whose recorded price timestamp is older than changedAt, recomputing
	// subtotals in the same mutation. It returns the number of line items
	// updated; stale events update nothing and return zero.
	ApplyPriceChange(ctx context.Context, productID uuid.UUID, newPrice float64, changedAt time.Time) (int, error)
}
