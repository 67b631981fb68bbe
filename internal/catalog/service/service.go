// Package service implements the catalog's product operations. The catalog
// is the pricing authority: every price change is published to the event
// stream for cart replicas to converge on.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storefront/internal/catalog/cache"
	"storefront/internal/catalog/models"
	"storefront/internal/events"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/sentinel"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, p *models.Product) error
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context) ([]*models.Product, error)
	UpdatePrice(ctx context.Context, id uuid.UUID, newPrice float64, updatedAt time.Time) (*models.Product, float64, error)
}

// Publisher delivers serialized events to the price-change stream.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Service owns product state and price-change propagation.
type Service struct {
	store     Store
	cache     *cache.ProductCache
	publisher Publisher
	logger    *slog.Logger
}

func New(store Store, productCache *cache.ProductCache, publisher Publisher, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("product store is required")
	}
	return &Service{store: store, cache: productCache, publisher: publisher, logger: logger}, nil
}

func (s *Service) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	product := &models.Product{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(ctx, product); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create product", err)
	}
	return product, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.cache.Get(ctx, id); ok {
		return p, nil
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "get product", err)
	}
	s.cache.Set(ctx, p)
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Product, error) {
	products, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list products", err)
	}
	return products, nil
}

// UpdatePrice applies the new authoritative price, invalidates the read
// cache, and publishes a PriceChange event keyed by product id. Publishing
// happens after the local commit; the event stream is the propagation
// channel, not a transaction participant.
func (s *Service) UpdatePrice(ctx context.Context, id uuid.UUID, newPrice float64, changedBy string) (*models.Product, error) {
	if newPrice < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "price cannot be negative")
	}

	changedAt := time.Now().UTC()
	product, oldPrice, err := s.store.UpdatePrice(ctx, id, newPrice, changedAt)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "update price", err)
	}
	s.cache.Invalidate(ctx, id)

	if s.publisher != nil {
		event := events.PriceChange{
			ProductID:   product.ID,
			ProductName: product.Name,
			OldPrice:    oldPrice,
			NewPrice:    newPrice,
			ChangedAt:   changedAt,
			ChangedBy:   changedBy,
			CategoryID:  product.CategoryID,
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "encode price change", err)
		}
		if err := s.publisher.Publish(ctx, product.ID.String(), payload); err != nil {
			// The local price is already committed; replicas converge on the
			// next successful publish or a manual replay.
			s.logger.ErrorContext(ctx, "price change publish failed",
				"product_id", product.ID.String(),
				"error", err,
			)
		}
	}

	return product, nil
}
