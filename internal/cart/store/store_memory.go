package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/cart/models"
	"storefront/pkg/sentinel"
)

// MemoryStore is a mutex-guarded cart store. The single mutex serializes
// price updates against quantity updates, which is exactly the consistency
// the line-item invariant needs.
type MemoryStore struct {
	mu     sync.RWMutex
	carts  map[uuid.UUID]*models.Cart
	byUser map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:  make(map[uuid.UUID]*models.Cart),
		byUser: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) CreateCart(_ context.Context, userID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byUser[userID]; ok {
		return copyCart(s.carts[existing]), nil
	}
	cart := &models.Cart{ID: uuid.New(), UserID: userID}
	s.carts[cart.ID] = cart
	s.byUser[userID] = cart.ID
	return copyCart(cart), nil
}

func (s *MemoryStore) GetCart(_ context.Context, cartID uuid.UUID) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[cartID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyCart(cart), nil
}

func (s *MemoryStore) GetCartByUser(_ context.Context, userID string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cartID, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyCart(s.carts[cartID]), nil
}

func (s *MemoryStore) UpsertItem(_ context.Context, cartID uuid.UUID, item models.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[cartID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			cart.Items[i].Subtotal = cart.Items[i].UnitPrice * float64(cart.Items[i].Quantity)
			return nil
		}
	}
	item.Subtotal = item.UnitPrice * float64(item.Quantity)
	cart.Items = append(cart.Items, item)
	return nil
}

func (s *MemoryStore) UpdateQuantity(_ context.Context, cartID, productID uuid.UUID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, ok := s.carts[cartID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			cart.Items[i].Subtotal = cart.Items[i].UnitPrice * float64(quantity)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *MemoryStore) ApplyPriceChange(_ context.Context, productID uuid.UUID, newPrice float64, changedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	applied := 0
	for _, cart := range s.carts {
		for i := range cart.Items {
			item := &cart.Items[i]
			if item.ProductID != productID {
				continue
			}
			// Apply-if-newer: an event at or before the recorded timestamp
			// is stale (or a duplicate) and is discarded.
			if !changedAt.After(item.PriceChangedAt) {
				continue
			}
			item.UnitPrice = newPrice
			item.Subtotal = newPrice * float64(item.Quantity)
			item.PriceChangedAt = changedAt
			applied++
		}
	}
	return applied, nil
}

func copyCart(cart *models.Cart) *models.Cart {
	copied := &models.Cart{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  make([]models.LineItem, len(cart.Items)),
	}
	copy(copied.Items, cart.Items)
	copied.ComputeTotal()
	return copied
}
