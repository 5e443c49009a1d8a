package catalog

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

var ErrProductNotFound = apperr.New(apperr.ErrNotFound, "product not found")

type productRow struct {
	ID         uuid.UUID `db:"id"`
	TenantID   uuid.UUID `db:"tenant_id"`
	Name       string    `db:"name"`
	Type       string    `db:"type"`
	PriceCents int64     `db:"price_cents"`
	Currency   string    `db:"currency"`
	Active     bool      `db:"active"`
	Meta       []byte    `db:"meta"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r productRow) toProduct() (*Product, error) {
	meta, err := DecodeMeta(ProductType(r.Type), r.Meta)
	if err != nil {
		return nil, err
	}

	return &Product{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Name:       r.Name,
		Type:       ProductType(r.Type),
		PriceCents: r.PriceCents,
		Currency:   r.Currency,
		Active:     r.Active,
		Meta:       meta,
		CreatedAt:  r.CreatedAt,
	}, nil
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Lookup {
	return &repository{db: db}
}

func (r *repository) GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*Product, error) {
	query := `
		SELECT id, tenant_id, name, type, price_cents, currency, active, meta, created_at
		FROM products
		WHERE id = $1 AND tenant_id = $2
	`

	var row productRow
	err := db.Conn(ctx, r.db).GetContext(ctx, &row, query, productID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	return row.toProduct()
}
