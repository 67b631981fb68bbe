package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"storefront/internal/cart/models"
	"storefront/internal/platform/resilience"
	"storefront/pkg/sentinel"
)

// PostgresStore persists carts in postgres. Every statement runs under the
// database-class retry policy and breaker. Line-item mutations are single
// statements, so row-level locking serializes concurrent price and quantity
// updates; subtotal is recomputed inside the same statement, never read back.
type PostgresStore struct {
	db  *sql.DB
	res *resilience.Context
}

// Schema is applied by deployments and by integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS carts (
	id      UUID PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS cart_items (
	cart_id          UUID NOT NULL REFERENCES carts(id),
	product_id       UUID NOT NULL,
	product_name     TEXT NOT NULL DEFAULT '',
	unit_price       NUMERIC(12,2) NOT NULL,
	quantity         INT NOT NULL,
	subtotal         NUMERIC(12,2) NOT NULL,
	price_changed_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
	PRIMARY KEY (cart_id, product_id)
);

CREATE INDEX IF NOT EXISTS cart_items_product_idx ON cart_items (product_id);
`

// NewPostgresStore opens the pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, dsn string, res *resilience.Context) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	store := &PostgresStore{db: db, res: res}
	if err := store.res.Execute(ctx, resilience.ClassDatabase, func(ctx context.Context) error {
		return db.PingContext(ctx)
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return store, nil
}

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.res.Execute(ctx, resilience.ClassDatabase, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, Schema)
		return err
	})
}

func (s *PostgresStore) CreateCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart := &models.Cart{ID: uuid.New(), UserID: userID}
	err := s.res.Execute(ctx, resilience.ClassDatabase, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO carts (id, user_id) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING id`,
			cart.ID, userID)
		return row.Scan(&cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, cart.ID)
}

func (s *PostgresStore) GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	return s.getCart(ctx, `WHERE c.id = $1`, cartID)
}

func (s *PostgresStore) GetCartByUser(ctx context.Context, userID string) (*models.Cart, error) {
	return s.getCart(ctx, `WHERE c.user_id = $1`, userID)
}

func (s *PostgresStore) getCart(ctx context.Context, where string, arg any) (*models.Cart, error) {
	var cart *models.Cart
	err := s.res.Execute(ctx, resilience.ClassDatabase, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT c.id, c.user_id,
			       i.product_id, i.product_name, i.unit_price, i.quantity, i.subtotal, i.price_changed_at
			FROM carts c
			LEFT JOIN cart_items i ON i.cart_id = c.id
			`+where, arg)
		if err != nil {
			return err
		}
		defer rows.Close()

		cart = nil
		for rows.Next() {
			var (
				id             uuid.UUID
				userID         string
				productID      sql.Null[uuid.UUID]
				productName    sql.NullString
				unitPrice      sql.NullFloat64
				quantity       sql.NullInt64
				subtotal       sql.NullFloat64
				priceChangedAt sql.NullTime
			)
			if err := rows.Scan(&id, &userID, &productID, &productName, &unitPrice, &quantity, &subtotal, &priceChangedAt); err != nil {
				return err
			}
			if cart == nil {
				cart = &models.Cart{ID: id, UserID: userID}
			}
			if productID.Valid {
				cart.Items = append(cart.Items, models.LineItem{
					ProductID:      productID.V,
					ProductName:    productName.String,
					UnitPrice:      unitPrice.Float64,
					Quantity:       int(quantity.Int64),
					Subtotal:       subtotal.Float64,
					PriceChangedAt: priceChangedAt.Time,
				})
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, sentinel.ErrNotFound
	}
	cart.ComputeTotal()
	return cart, nil
}

func (s *PostgresStore) UpsertItem(ctx context.Context, cartID uuid.UUID, item models.LineItem) error {
	return s.res.Execute(ctx, resilience.ClassDatabase, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO cart_items (cart_id, product_id, product_name, unit_price, quantity, subtotal, price_changed_at)
			VALUES ($1, $2, $3, $4, $5, $4 * $5, $6)
			ON CONFLICT (cart_id, product_id) DO UPDATE SET
				quantity = cart_items.quantity + EXCLUDED.quantity,
				subtotal = cart_items.unit_price * (cart_items.quantity + EXCLUDED.quantity)`,
			cartID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.PriceChangedAt)
		return err
	})
}

func (s *PostgresStore) UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	return s.res.Execute(ctx, resilience.ClassDatabase, func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, `
			UPDATE cart_items
			SET quantity = $3, subtotal = unit_price * $3
			WHERE cart_id = $1 AND product_id = $2`,
			cartID, productID, quantity)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return sentinel.ErrNotFound
		}
		return nil
	})
}

// ApplyPriceChange is a single compare-and-set statement: the WHERE clause
// enforces apply-if-newer and row locks serialize concurrent appliers, so the
// surviving state always reflects the greatest changedAt.
func (s *PostgresStore) ApplyPriceChange(ctx context.Context, productID uuid.UUID, newPrice float64, changedAt time.Time) (int, error) {
	var applied int
	err := s.res.Execute(ctx, resilience.ClassDatabase, func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, `
			UPDATE cart_items
			SET unit_price = $2, subtotal = $2 * quantity, price_changed_at = $3
			WHERE product_id = $1 AND price_changed_at < $3`,
			productID, newPrice, changedAt)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		applied = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*MemoryStore)(nil)
