//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"storefront/internal/cart/models"
	"storefront/internal/cart/store"
	"storefront/internal/platform/resilience"
	"storefront/pkg/sentinel"
	"storefront/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())

	res := resilience.NewContext(resilience.Settings{
		MaxAttempts:      3,
		BaseDelay:        10 * time.Millisecond,
		BreakerThreshold: 5,
		BreakerOpenFor:   time.Second,
	}, nil)

	pg, err := store.NewPostgresStore(context.Background(), s.postgres.DSN, res)
	s.Require().NoError(err)
	s.Require().NoError(pg.Migrate(context.Background()))
	s.store = pg
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "cart_items", "carts")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedItem(userID string, item models.LineItem) uuid.UUID {
	cart, err := s.store.CreateCart(context.Background(), userID)
	s.Require().NoError(err)
	s.Require().NoError(s.store.UpsertItem(context.Background(), cart.ID, item))
	return cart.ID
}

func (s *PostgresStoreSuite) TestCreateCart_IdempotentPerUser() {
	first, err := s.store.CreateCart(context.Background(), "user-1")
	s.Require().NoError(err)
	second, err := s.store.CreateCart(context.Background(), "user-1")
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	productID := uuid.New()
	cartID := s.seedItem("user-1", models.LineItem{
		ProductID:   productID,
		ProductName: "Keyboard",
		UnitPrice:   49.50,
		Quantity:    2,
	})

	cart, err := s.store.GetCart(context.Background(), cartID)
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Equal("Keyboard", cart.Items[0].ProductName)
	s.InDelta(99.0, cart.Items[0].Subtotal, 1e-9)
	s.InDelta(99.0, cart.Total, 1e-9)

	byUser, err := s.store.GetCartByUser(context.Background(), "user-1")
	s.Require().NoError(err)
	s.Equal(cartID, byUser.ID)
}

func (s *PostgresStoreSuite) TestUpsertItem_MergesQuantity() {
	productID := uuid.New()
	cartID := s.seedItem("user-1", models.LineItem{ProductID: productID, UnitPrice: 10, Quantity: 2})

	err := s.store.UpsertItem(context.Background(), cartID, models.LineItem{
		ProductID: productID,
		UnitPrice: 10,
		Quantity:  3,
	})
	s.Require().NoError(err)

	cart, err := s.store.GetCart(context.Background(), cartID)
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Equal(5, cart.Items[0].Quantity)
	s.InDelta(50.0, cart.Items[0].Subtotal, 1e-9)
}

func (s *PostgresStoreSuite) TestUpdateQuantity() {
	productID := uuid.New()
	cartID := s.seedItem("user-1", models.LineItem{ProductID: productID, UnitPrice: 4, Quantity: 1})

	s.Require().NoError(s.store.UpdateQuantity(context.Background(), cartID, productID, 7))

	cart, err := s.store.GetCart(context.Background(), cartID)
	s.Require().NoError(err)
	s.Equal(7, cart.Items[0].Quantity)
	s.InDelta(28.0, cart.Items[0].Subtotal, 1e-9)

	err = s.store.UpdateQuantity(context.Background(), cartID, uuid.New(), 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestApplyPriceChange_OutOfOrderKeepsNewest() {
	productID := uuid.New()
	t1 := time.Now().UTC().Truncate(time.Microsecond)
	t2 := t1.Add(time.Minute)
	cartID := s.seedItem("user-1", models.LineItem{ProductID: productID, UnitPrice: 100, Quantity: 1})

	applied, err := s.store.ApplyPriceChange(context.Background(), productID, 150, t2)
	s.Require().NoError(err)
	s.Equal(1, applied)

	applied, err = s.store.ApplyPriceChange(context.Background(), productID, 120, t1)
	s.Require().NoError(err)
	s.Equal(0, applied)

	cart, err := s.store.GetCart(context.Background(), cartID)
	s.Require().NoError(err)
	s.InDelta(150.0, cart.Items[0].UnitPrice, 1e-9)
}

func (s *PostgresStoreSuite) TestApplyPriceChange_DuplicateIsNoop() {
	productID := uuid.New()
	at := time.Now().UTC().Truncate(time.Microsecond)
	s.seedItem("user-1", models.LineItem{ProductID: productID, UnitPrice: 100, Quantity: 3})

	applied, err := s.store.ApplyPriceChange(context.Background(), productID, 110, at)
	s.Require().NoError(err)
	s.Equal(1, applied)

	applied, err = s.store.ApplyPriceChange(context.Background(), productID, 110, at)
	s.Require().NoError(err)
	s.Equal(0, applied)
}

func (s *PostgresStoreSuite) TestApplyPriceChange_UpdatesAllCarts() {
	productID := uuid.New()
	s.seedItem("user-1", models.LineItem{ProductID: productID, UnitPrice: 100, Quantity: 2})
	s.seedItem("user-2", models.LineItem{ProductID: productID, UnitPrice: 100, Quantity: 1})

	applied, err := s.store.ApplyPriceChange(context.Background(), productID, 120, time.Now().UTC())
	s.Require().NoError(err)
	s.Equal(2, applied)

	cart, err := s.store.GetCartByUser(context.Background(), "user-2")
	s.Require().NoError(err)
	s.InDelta(120.0, cart.Items[0].UnitPrice, 1e-9)
	s.InDelta(120.0, cart.Items[0].Subtotal, 1e-9)
}
