package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fitstudio/internal/apperr"
	"fitstudio/internal/db"
)

var ErrOrderNotFound = apperr.New(apperr.ErrNotFound, "order not found")

const orderColumns = `id, tenant_id, user_id, status, total_cents, currency, provider, provider_ref, paid_at, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (id, tenant_id, user_id, status, total_cents, currency, provider, provider_ref, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, query,
		o.ID, o.TenantID, o.UserID, o.Status, o.TotalCents, o.Currency, o.Provider, o.ProviderRef, o.PaidAt, o.CreatedAt)
	return err
}

func (r *repository) InsertItems(ctx context.Context, items []Item) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price_cents, total_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	conn := db.Conn(ctx, r.db)
	for _, it := range items {
		_, err := conn.ExecContext(ctx, query,
			it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPriceCents, it.TotalCents)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1 AND tenant_id = $2
	`
	return r.get(ctx, query, id, tenantID)
}

// FindByID looks an order up without a tenant. Only the payment webhook uses
// it, since provider notifications carry no studio.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`
	return r.get(ctx, query, id)
}

func (r *repository) LockByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1 AND tenant_id = $2
		FOR UPDATE
	`
	return r.get(ctx, query, id, tenantID)
}

func (r *repository) get(ctx context.Context, query string, args ...interface{}) (*Order, error) {
	var o Order
	err := db.Conn(ctx, r.db).GetContext(ctx, &o, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) Update(ctx context.Context, o *Order) error {
	query := `
		UPDATE orders
		SET status = $2, provider = $3, provider_ref = $4, paid_at = $5
		WHERE id = $1
	`

	result, err := db.Conn(ctx, r.db).ExecContext(ctx, query, o.ID, o.Status, o.Provider, o.ProviderRef, o.PaidAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price_cents, total_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	var items []Item
	err := db.Conn(ctx, r.db).SelectContext(ctx, &items, query, orderID)
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *repository) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, tenantID, userID)
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, tenantID)
}

// ListPendingBefore returns the oldest pending orders of a provider created
// before the cutoff, across all studios.
func (r *repository) ListPendingBefore(ctx context.Context, provider string, before time.Time, limit int) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = 'pending' AND provider = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	return r.list(ctx, query, provider, before, limit)
}

func (r *repository) list(ctx context.Context, query string, args ...interface{}) ([]Order, error) {
	var orders []Order
	err := db.Conn(ctx, r.db).SelectContext(ctx, &orders, query, args...)
	if err != nil {
		return nil, err
	}
	return orders, nil
}
