package booking

import (
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/ledger"
)

type Status string

const (
	StatusBooked    Status = "booked"
	StatusWaitlist  Status = "waitlist"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
	StatusAttended  Status = "attended"
)

const (
	SourceWeb   = "web"
	SourceStaff = "staff"
)

type Booking struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TenantID     uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	SessionID    uuid.UUID  `db:"session_id" json:"session_id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	Status       Status     `db:"status" json:"status"`
	CreditID     *uuid.UUID `db:"credit_id" json:"credit_id,omitempty"`
	MembershipID *uuid.UUID `db:"membership_id" json:"membership_id,omitempty"`
	Source       string     `db:"source" json:"source"`
	BookedAt     time.Time  `db:"booked_at" json:"booked_at"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Entitlement returns the credit or membership paying for the booking, if any.
func (b *Booking) Entitlement() *ledger.Ref {
	return ledger.RefFromColumns(b.CreditID, b.MembershipID)
}

func (b *Booking) SetEntitlement(ref *ledger.Ref) {
	b.CreditID, b.MembershipID = ref.Columns()
}

type Checkin struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BookingID   uuid.UUID `db:"booking_id" json:"booking_id"`
	CheckedInAt time.Time `db:"checked_in_at" json:"checked_in_at"`
	Method      string    `db:"method" json:"method"`
}

// Actor is the caller of a mutating operation.
type Actor struct {
	ID    uuid.UUID
	Staff bool
}

type BookRequest struct {
	Source string `json:"source" binding:"omitempty,oneof=web staff app"`
}

type CheckInRequest struct {
	Method string `json:"method" binding:"omitempty,oneof=staff qr self"`
}
