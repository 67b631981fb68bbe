// Package service implements cart operations for request handlers. Price
// propagation happens in the consumer package; this layer only prices new
// line items from the catalog at insertion time.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"storefront/internal/cart/models"
	"storefront/internal/cart/store"
	catalogmodels "storefront/internal/catalog/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/sentinel"
)

// Catalog is the slice of the catalog surface the cart needs.
type Catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalogmodels.Product, error)
}

// Service owns cart state transitions.
type Service struct {
	store   store.Store
	catalog Catalog
	logger  *slog.Logger
}

func New(s store.Store, catalog Catalog, logger *slog.Logger) (*Service, error) {
	if s == nil {
		return nil, errors.New("cart store is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog client is required")
	}
	return &Service{store: s, catalog: catalog, logger: logger}, nil
}

// GetOrCreateCart returns the user's cart, creating it on first use.
func (s *Service) GetOrCreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load cart", err)
	}
	cart, err = s.store.CreateCart(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create cart", err)
	}
	return cart, nil
}

// AddItem prices the product from the catalog and adds it to the user's
// cart. The catalog read is the only synchronous cross-service dependency;
// afterwards the item's price converges via events.
func (s *Service) AddItem(ctx context.Context, userID string, req *models.AddItemRequest) (*models.Cart, error) {
	if req.Quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "quantity must be positive")
	}

	cart, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(dErrors.CodeUnavailable, "catalog unavailable", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "fetch product", err)
	}

	item := models.LineItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPrice:      product.Price,
		Quantity:       req.Quantity,
		PriceChangedAt: product.UpdatedAt,
	}
	if err := s.store.UpsertItem(ctx, cart.ID, item); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "add item", err)
	}
	return s.store.GetCart(ctx, cart.ID)
}

// UpdateQuantity sets a line item's quantity.
func (s *Service) UpdateQuantity(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "quantity must be positive")
	}

	cart, err := s.store.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "cart not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load cart", err)
	}
	if err := s.store.UpdateQuantity(ctx, cart.ID, productID, quantity); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "item not in cart")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "update quantity", err)
	}
	return s.store.GetCart(ctx, cart.ID)
}

// GetCart returns the user's cart.
func (s *Service) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.store.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "cart not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load cart", err)
	}
	return cart, nil
}
