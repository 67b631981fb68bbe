package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cart/models"
	"storefront/pkg/sentinel"
)

func seedCartWithItem(t *testing.T, s *MemoryStore, userID string, item models.LineItem) *models.Cart {
	t.Helper()
	cart, err := s.CreateCart(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, s.UpsertItem(context.Background(), cart.ID, item))
	cart, err = s.GetCart(context.Background(), cart.ID)
	require.NoError(t, err)
	return cart
}

func TestCreateCart_IdempotentPerUser(t *testing.T) {
	s := NewMemoryStore()

	first, err := s.CreateCart(context.Background(), "user-1")
	require.NoError(t, err)
	second, err := s.CreateCart(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestGetCart_NotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GetCart(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = s.GetCartByUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestUpsertItem_MergesQuantity(t *testing.T) {
	s := NewMemoryStore()
	productID := uuid.New()
	cart := seedCartWithItem(t, s, "user-1", models.LineItem{
		ProductID: productID,
		UnitPrice: 10,
		Quantity:  2,
	})

	require.NoError(t, s.UpsertItem(context.Background(), cart.ID, models.LineItem{
		ProductID: productID,
		UnitPrice: 10,
		Quantity:  3,
	}))

	cart, err := s.GetCart(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.InDelta(t, 50.0, cart.Items[0].Subtotal, 1e-9)
	assert.InDelta(t, 50.0, cart.Total, 1e-9)
}

func TestUpdateQuantity_RecomputesSubtotal(t *testing.T) {
	s := NewMemoryStore()
	productID := uuid.New()
	cart := seedCartWithItem(t, s, "user-1", models.LineItem{
		ProductID: productID,
		UnitPrice: 4,
		Quantity:  1,
	})

	require.NoError(t, s.UpdateQuantity(context.Background(), cart.ID, productID, 7))

	cart, err := s.GetCart(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)
	assert.InDelta(t, 28.0, cart.Items[0].Subtotal, 1e-9)

	err = s.UpdateQuantity(context.Background(), cart.ID, uuid.New(), 1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestApplyPriceChange_UpdatesAllCarts(t *testing.T) {
	s := NewMemoryStore()
	productID := uuid.New()
	base := time.Now().UTC()
	for _, user := range []string{"user-1", "user-2"} {
		seedCartWithItem(t, s, user, models.LineItem{
			ProductID:      productID,
			UnitPrice:      100,
			Quantity:       2,
			PriceChangedAt: base,
		})
	}

	applied, err := s.ApplyPriceChange(context.Background(), productID, 120, base.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	cart, err := s.GetCartByUser(context.Background(), "user-2")
	require.NoError(t, err)
	assert.InDelta(t, 120.0, cart.Items[0].UnitPrice, 1e-9)
	assert.InDelta(t, 240.0, cart.Items[0].Subtotal, 1e-9)
}

func TestApplyPriceChange_OutOfOrderKeepsNewest(t *testing.T) {
	s := NewMemoryStore()
	productID := uuid.New()
	t1 := time.Now().UTC()
	t2 := t1.Add(time.Minute)
	cart := seedCartWithItem(t, s, "user-1", models.LineItem{
		ProductID: productID,
		UnitPrice: 100,
		Quantity:  1,
	})

	// Newer event arrives first; the older one must then be discarded.
	applied, err := s.ApplyPriceChange(context.Background(), productID, 150, t2)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	applied, err = s.ApplyPriceChange(context.Background(), productID, 120, t1)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	cart, err = s.GetCart(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, cart.Items[0].UnitPrice, 1e-9)
	assert.Equal(t, t2, cart.Items[0].PriceChangedAt)
}

func TestApplyPriceChange_DuplicateIsNoop(t *testing.T) {
	s := NewMemoryStore()
	productID := uuid.New()
	at := time.Now().UTC()
	seedCartWithItem(t, s, "user-1", models.LineItem{
		ProductID: productID,
		UnitPrice: 100,
		Quantity:  3,
	})

	applied, err := s.ApplyPriceChange(context.Background(), productID, 110, at)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	applied, err = s.ApplyPriceChange(context.Background(), productID, 110, at)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	cart, err := s.GetCartByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 330.0, cart.Total, 1e-9)
}

func TestApplyPriceChange_OnlyMatchingProduct(t *testing.T) {
	s := NewMemoryStore()
	target := uuid.New()
	other := uuid.New()
	cart, err := s.CreateCart(context.Background(), "user-1")
	require.NoError(t, err)
	require.NoError(t, s.UpsertItem(context.Background(), cart.ID, models.LineItem{ProductID: target, UnitPrice: 10, Quantity: 1}))
	require.NoError(t, s.UpsertItem(context.Background(), cart.ID, models.LineItem{ProductID: other, UnitPrice: 20, Quantity: 1}))

	applied, err := s.ApplyPriceChange(context.Background(), target, 15, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	cart, err = s.GetCart(context.Background(), cart.ID)
	require.NoError(t, err)
	for _, item := range cart.Items {
		if item.ProductID == other {
			assert.InDelta(t, 20.0, item.UnitPrice, 1e-9)
		}
	}
}

func TestApplyPriceChange_ConcurrentWithQuantityUpdates(t *testing.T) {
	s := NewMemoryStore()
	productID := uuid.New()
	cart := seedCartWithItem(t, s, "user-1", models.LineItem{
		ProductID: productID,
		UnitPrice: 10,
		Quantity:  1,
	})

	base := time.Now().UTC()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := s.ApplyPriceChange(context.Background(), productID, float64(10+i), base.Add(time.Duration(i)*time.Millisecond))
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.UpdateQuantity(context.Background(), cart.ID, productID, 1+i%5))
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, the winning price is the one with the
	// newest timestamp and the subtotal matches the final price and quantity.
	got, err := s.GetCart(context.Background(), cart.ID)
	require.NoError(t, err)
	item := got.Items[0]
	assert.InDelta(t, 60.0, item.UnitPrice, 1e-9)
	assert.Equal(t, base.Add(50*time.Millisecond), item.PriceChangedAt)
	assert.InDelta(t, item.UnitPrice*float64(item.Quantity), item.Subtotal, 1e-9)
}
