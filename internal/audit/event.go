package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/logger"
)

const (
	ActionBookingCreated     = "booking_created"
	ActionBookingReactivated = "booking_reactivated"
	ActionWaitlistJoined     = "waitlist_joined"
	ActionWaitlistPromoted   = "waitlist_promoted"
	ActionBookingCancelled   = "booking_cancelled"
	ActionCheckinCreated     = "checkin_created"
	ActionCheckinDeleted     = "checkin_deleted"
	ActionBookingNoShow      = "booking_no_show"
	ActionSessionCreated     = "session_created"
	ActionOrderCreated       = "order_created"
	ActionOrderPaid          = "order_paid"
	ActionOrderCancelled     = "order_cancelled"
	ActionPaymentLinkCreated = "payment_link_created"
)

type Event struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	TenantID  uuid.UUID              `db:"tenant_id" json:"tenant_id"`
	ActorID   *uuid.UUID             `db:"actor_id" json:"actor_id,omitempty"`
	Action    string                 `db:"action" json:"action"`
	Entity    string                 `db:"entity" json:"entity"`
	EntityID  string                 `db:"entity_id" json:"entity_id"`
	Meta      map[string]interface{} `db:"-" json:"meta,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

func NewEvent(tenantID uuid.UUID, actorID *uuid.UUID, action, entity string, entityID uuid.UUID, meta map[string]interface{}) Event {
	return Event{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID.String(),
		Meta:      meta,
		CreatedAt: time.Now(),
	}
}

// Sink receives business events. Recording is best effort and never undoes
// the operation that produced the event.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

type NopSink struct{}

func (NopSink) Record(context.Context, Event) error { return nil }

// Log records ev and only logs a failure.
func Log(ctx context.Context, s Sink, ev Event) {
	if s == nil {
		return
	}
	if err := s.Record(ctx, ev); err != nil {
		logger.Warn("audit record failed", "action", ev.Action, "entity_id", ev.EntityID, "error", err)
	}
}
