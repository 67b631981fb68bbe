// Package user stores accounts for the identity service. Only an in-memory
// implementation exists; the credential store is out-of-scope scaffolding
// around the token issuing core.
package user

import (
	"context"
	"strings"
	"sync"

	"storefront/internal/identity/models"
	"storefront/pkg/sentinel"
)

// MemoryStore is a mutex-guarded user store keyed by lowercased email.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*models.User)}
}

// Create inserts a user; a duplicate email returns sentinel.ErrConflict.
func (s *MemoryStore) Create(_ context.Context, u *models.User) error {
	key := strings.ToLower(u.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		return sentinel.ErrConflict
	}
	copied := *u
	s.users[key] = &copied
	return nil
}

// FindByEmail returns the user or sentinel.ErrNotFound.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *u
	return &copied, nil
}
