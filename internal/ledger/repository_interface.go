package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// LockActiveMembership returns the active membership covering now that
	// ends soonest, locked for update, or ErrMembershipNotFound.
	LockActiveMembership(ctx context.Context, tenantID, userID uuid.UUID, now time.Time) (*Membership, error)
	// LockEligibleCredit returns the usable credit expiring soonest, locked
	// for update, or ErrCreditNotFound.
	LockEligibleCredit(ctx context.Context, tenantID, userID uuid.UUID, now time.Time) (*Credit, error)
	IncrementCreditUsed(ctx context.Context, creditID uuid.UUID) error
	DecrementCreditUsed(ctx context.Context, creditID uuid.UUID) error
	InsertCredit(ctx context.Context, c *Credit) error
	InsertMembership(ctx context.Context, m *Membership) error
	ListCredits(ctx context.Context, tenantID, userID uuid.UUID) ([]Credit, error)
	ListMemberships(ctx context.Context, tenantID, userID uuid.UUID) ([]Membership, error)
}
