package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/ledger"
)

type ledgerRepo struct{ s *Store }

// expiresFirst orders bounded dates before unbounded ones, then by insertion.
func expiresFirst(d *data, a, b *time.Time, idA, idB uuid.UUID) bool {
	switch {
	case a != nil && b != nil && !a.Equal(*b):
		return a.Before(*b)
	case a != nil && b == nil:
		return true
	case a == nil && b != nil:
		return false
	default:
		return d.seq[idA] < d.seq[idB]
	}
}

func (r ledgerRepo) LockActiveMembership(ctx context.Context, tenantID, userID uuid.UUID, now time.Time) (*ledger.Membership, error) {
	var out *ledger.Membership
	err := r.s.run(ctx, func(d *data) error {
		var active []ledger.Membership
		for _, m := range d.memberships {
			if m.TenantID == tenantID && m.UserID == userID && m.ActiveAt(now) {
				active = append(active, m)
			}
		}
		if len(active) == 0 {
			return ledger.ErrMembershipNotFound
		}
		sort.Slice(active, func(i, j int) bool {
			return expiresFirst(d, active[i].EndsAt, active[j].EndsAt, active[i].ID, active[j].ID)
		})
		out = &active[0]
		return nil
	})
	return out, err
}

func (r ledgerRepo) LockEligibleCredit(ctx context.Context, tenantID, userID uuid.UUID, now time.Time) (*ledger.Credit, error) {
	var out *ledger.Credit
	err := r.s.run(ctx, func(d *data) error {
		var eligible []ledger.Credit
		for _, c := range d.credits {
			if c.TenantID == tenantID && c.UserID == userID && c.EligibleAt(now) {
				eligible = append(eligible, c)
			}
		}
		if len(eligible) == 0 {
			return ledger.ErrCreditNotFound
		}
		sort.Slice(eligible, func(i, j int) bool {
			return expiresFirst(d, eligible[i].ExpiresAt, eligible[j].ExpiresAt, eligible[i].ID, eligible[j].ID)
		})
		out = &eligible[0]
		return nil
	})
	return out, err
}

func (r ledgerRepo) IncrementCreditUsed(ctx context.Context, creditID uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		c, ok := d.credits[creditID]
		if !ok || c.CreditsUsed >= c.CreditsTotal {
			return ledger.ErrCreditOverflow
		}
		c.CreditsUsed++
		d.credits[creditID] = c
		return nil
	})
}

func (r ledgerRepo) DecrementCreditUsed(ctx context.Context, creditID uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		c, ok := d.credits[creditID]
		if !ok {
			return ledger.ErrCreditNotFound
		}
		if c.CreditsUsed > 0 {
			c.CreditsUsed--
		}
		d.credits[creditID] = c
		return nil
	})
}

func (r ledgerRepo) InsertCredit(ctx context.Context, c *ledger.Credit) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.credits[c.ID]; ok {
			return ErrDuplicate
		}
		d.credits[c.ID] = *c
		d.track(c.ID)
		return nil
	})
}

func (r ledgerRepo) InsertMembership(ctx context.Context, m *ledger.Membership) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.memberships[m.ID]; ok {
			return ErrDuplicate
		}
		d.memberships[m.ID] = *m
		d.track(m.ID)
		return nil
	})
}

func (r ledgerRepo) ListCredits(ctx context.Context, tenantID, userID uuid.UUID) ([]ledger.Credit, error) {
	var out []ledger.Credit
	err := r.s.run(ctx, func(d *data) error {
		for _, c := range d.credits {
			if c.TenantID == tenantID && c.UserID == userID {
				out = append(out, c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return d.seq[out[i].ID] > d.seq[out[j].ID] })
		return nil
	})
	return out, err
}

func (r ledgerRepo) ListMemberships(ctx context.Context, tenantID, userID uuid.UUID) ([]ledger.Membership, error) {
	var out []ledger.Membership
	err := r.s.run(ctx, func(d *data) error {
		for _, m := range d.memberships {
			if m.TenantID == tenantID && m.UserID == userID {
				out = append(out, m)
			}
		}
		sort.Slice(out, func(i, j int) bool { return d.seq[out[i].ID] > d.seq[out[j].ID] })
		return nil
	})
	return out, err
}
