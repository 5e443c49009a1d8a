package ledger

import (
	"time"

	"github.com/google/uuid"
)

type Credit struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	TenantID          uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	UserID            uuid.UUID  `db:"user_id" json:"user_id"`
	SourceOrderItemID *uuid.UUID `db:"source_order_item_id" json:"source_order_item_id,omitempty"`
	CreditsTotal      int        `db:"credits_total" json:"credits_total"`
	CreditsUsed       int        `db:"credits_used" json:"credits_used"`
	ExpiresAt         *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

func (c Credit) Remaining() int {
	return c.CreditsTotal - c.CreditsUsed
}

// EligibleAt reports whether the credit still has uses left and has not expired at now.
func (c Credit) EligibleAt(now time.Time) bool {
	if c.Remaining() <= 0 {
		return false
	}
	return c.ExpiresAt == nil || !c.ExpiresAt.Before(now)
}

type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipPaused    MembershipStatus = "paused"
	MembershipCancelled MembershipStatus = "cancelled"
	MembershipExpired   MembershipStatus = "expired"
)

type Membership struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	TenantID  uuid.UUID        `db:"tenant_id" json:"tenant_id"`
	UserID    uuid.UUID        `db:"user_id" json:"user_id"`
	ProductID *uuid.UUID       `db:"product_id" json:"product_id,omitempty"`
	Status    MembershipStatus `db:"status" json:"status"`
	StartsAt  time.Time        `db:"starts_at" json:"starts_at"`
	EndsAt    *time.Time       `db:"ends_at" json:"ends_at,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

func (m Membership) ActiveAt(now time.Time) bool {
	if m.Status != MembershipActive || m.StartsAt.After(now) {
		return false
	}
	return m.EndsAt == nil || !m.EndsAt.Before(now)
}

type Kind string

const (
	KindCredit     Kind = "credit"
	KindMembership Kind = "membership"
)

// Ref points at the credit or membership that pays for a booking.
type Ref struct {
	Kind Kind      `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func CreditRef(id uuid.UUID) Ref     { return Ref{Kind: KindCredit, ID: id} }
func MembershipRef(id uuid.UUID) Ref { return Ref{Kind: KindMembership, ID: id} }

// Columns splits the reference into the nullable credit and membership columns.
func (r *Ref) Columns() (creditID, membershipID *uuid.UUID) {
	if r == nil {
		return nil, nil
	}
	id := r.ID
	if r.Kind == KindCredit {
		return &id, nil
	}
	return nil, &id
}

// RefFromColumns is the inverse of Columns. Both nil yields nil.
func RefFromColumns(creditID, membershipID *uuid.UUID) *Ref {
	switch {
	case creditID != nil:
		ref := CreditRef(*creditID)
		return &ref
	case membershipID != nil:
		ref := MembershipRef(*membershipID)
		return &ref
	default:
		return nil
	}
}

type CreditGrant struct {
	TenantID          uuid.UUID
	UserID            uuid.UUID
	Credits           int
	ExpiresAt         *time.Time
	SourceOrderItemID *uuid.UUID
}

type MembershipGrant struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	ProductID *uuid.UUID
	StartsAt  time.Time
	EndsAt    *time.Time
}

type Balance struct {
	CreditsAvailable     int        `json:"credits_available"`
	HasActiveMembership  bool       `json:"has_active_membership"`
	MembershipEndsAt     *time.Time `json:"membership_ends_at"`
	NextCreditExpiration *time.Time `json:"next_credit_expiration"`
}
