// Package cache fronts product reads with redis. Entries are invalidated on
// every price change so cached reads never outlive the authority's value
// longer than the TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/catalog/models"
	"storefront/internal/platform/redis"
)

const productTTL = 5 * time.Minute

// ProductCache caches products by id. A nil *ProductCache is a valid no-op
// cache so the service works without redis configured.
type ProductCache struct {
	client *redis.Client
	logger *slog.Logger
}

func New(client *redis.Client, logger *slog.Logger) *ProductCache {
	if client == nil {
		return nil
	}
	return &ProductCache{client: client, logger: logger}
}

func key(id uuid.UUID) string {
	return "catalog:product:" + id.String()
}

// Get returns the cached product or (nil, false). Cache failures are logged
// and treated as misses; the store is the source of truth.
func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*models.Product, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "product cache read failed", "error", err)
		}
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// Set stores a product with the standard TTL.
func (c *ProductCache) Set(ctx context.Context, p *models.Product) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(p.ID), raw, productTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "product cache write failed", "error", err)
	}
}

// Invalidate drops a product from the cache.
func (c *ProductCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		c.logger.WarnContext(ctx, "product cache invalidation failed", "error", err)
	}
}
