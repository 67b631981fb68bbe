// Package store persists catalog products. The in-memory implementation is
// the development default; reads go through the redis cache in front of it.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/catalog/models"
	"storefront/pkg/sentinel"
)

// MemoryStore is a mutex-guarded product store.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*models.Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[uuid.UUID]*models.Product)}
}

func (s *MemoryStore) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *p
	s.products[p.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Product, 0, len(s.products))
	for _, p := range s.products {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

// UpdatePrice sets the new price and returns the stored product with its
// previous price, for event construction.
func (s *MemoryStore) UpdatePrice(_ context.Context, id uuid.UUID, newPrice float64, updatedAt time.Time) (*models.Product, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, 0, sentinel.ErrNotFound
	}
	oldPrice := p.Price
	p.Price = newPrice
	p.UpdatedAt = updatedAt
	copied := *p
	return &copied, oldPrice, nil
}
