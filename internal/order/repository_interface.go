package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, items []Item) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	LockByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListItems(ctx context.Context, orderID uuid.UUID) ([]Item, error)
	ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Order, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Order, error)
	ListPendingBefore(ctx context.Context, provider string, before time.Time, limit int) ([]Order, error)
}
