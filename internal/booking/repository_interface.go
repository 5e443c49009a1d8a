package booking

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CountBooked(ctx context.Context, sessionID uuid.UUID) (int, error)
	FindForUser(ctx context.Context, sessionID, userID uuid.UUID) (*Booking, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Booking, error)
	Insert(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
	ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Booking, error)
	ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]Booking, error)
	InsertCheckin(ctx context.Context, c *Checkin) error
	DeleteCheckin(ctx context.Context, bookingID uuid.UUID) error
}
