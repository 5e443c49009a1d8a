package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/logger"
)

const (
	BookingBooked     = "booking.booked"
	BookingWaitlisted = "booking.waitlisted"
	BookingPromoted   = "booking.promoted"
	BookingCancelled  = "booking.cancelled"
	OrderPaid         = "order.paid"
)

// Publisher hands domain events to the notification side.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type BookingEvent struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	SessionID  uuid.UUID `json:"session_id"`
	UserID     uuid.UUID `json:"user_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type OrderEvent struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	TotalCents  int64     `json:"total_cents"`
	Currency    string    `json:"currency"`
	Provider    string    `json:"provider"`
	ProviderRef string    `json:"provider_ref"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// Emit publishes and only logs on failure. Callers invoke it after commit.
func Emit(ctx context.Context, p Publisher, key string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, key, payload); err != nil {
		logger.WithError(err).Warn("failed to publish event", "key", key)
	}
}
