package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fitstudio/internal/apperr"
	"fitstudio/internal/db"
	"fitstudio/internal/logger"
)

var ErrNoEntitlement = apperr.New(apperr.ErrNoEntitlement,
	"no classes available: purchase a drop-in class, a package or a membership")

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service owns credit and membership balances. Every method runs inside a
// transaction and joins the caller's transaction when ctx carries one.
type Service struct {
	repo Repository
	tx   db.TxManager
	now  func() time.Time
}

func NewService(repo Repository, tx db.TxManager, opts ...Option) *Service {
	s := &Service{repo: repo, tx: tx, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Claim picks the entitlement that would pay for a booking without spending it.
// An active membership wins over any credit.
func (s *Service) Claim(ctx context.Context, tenantID, userID uuid.UUID) (Ref, error) {
	var ref Ref
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ref, err = s.claim(ctx, tenantID, userID)
		return err
	})
	return ref, err
}

func (s *Service) claim(ctx context.Context, tenantID, userID uuid.UUID) (Ref, error) {
	now := s.now()

	m, err := s.repo.LockActiveMembership(ctx, tenantID, userID, now)
	if err == nil {
		return MembershipRef(m.ID), nil
	}
	if !errors.Is(err, ErrMembershipNotFound) {
		return Ref{}, fmt.Errorf("lock membership: %w", err)
	}

	c, err := s.repo.LockEligibleCredit(ctx, tenantID, userID, now)
	if err != nil {
		if errors.Is(err, ErrCreditNotFound) {
			return Ref{}, ErrNoEntitlement
		}
		return Ref{}, fmt.Errorf("lock credit: %w", err)
	}

	return CreditRef(c.ID), nil
}

// Consume spends one use of ref. Memberships are unlimited.
func (s *Service) Consume(ctx context.Context, ref Ref) error {
	if ref.Kind != KindCredit {
		return nil
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.IncrementCreditUsed(ctx, ref.ID)
	})
	if errors.Is(err, ErrCreditOverflow) {
		logger.Error("credit overflow", "credit_id", ref.ID)
	}
	return err
}

// Release gives back one use of ref. Used count never drops below zero.
func (s *Service) Release(ctx context.Context, ref Ref) error {
	if ref.Kind != KindCredit {
		return nil
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.DecrementCreditUsed(ctx, ref.ID)
	})
}

// ClaimAndConsume claims and spends in the same lock scope.
func (s *Service) ClaimAndConsume(ctx context.Context, tenantID, userID uuid.UUID) (Ref, error) {
	var ref Ref
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ref, err = s.claim(ctx, tenantID, userID)
		if err != nil {
			return err
		}
		return s.Consume(ctx, ref)
	})
	if err != nil {
		return Ref{}, err
	}
	return ref, nil
}

func (s *Service) IssueCredits(ctx context.Context, g CreditGrant) (*Credit, error) {
	if g.Credits <= 0 {
		return nil, apperr.Validation("credits", "must be positive")
	}

	c := &Credit{
		ID:                uuid.New(),
		TenantID:          g.TenantID,
		UserID:            g.UserID,
		SourceOrderItemID: g.SourceOrderItemID,
		CreditsTotal:      g.Credits,
		ExpiresAt:         g.ExpiresAt,
		CreatedAt:         s.now(),
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.InsertCredit(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("insert credit: %w", err)
	}

	return c, nil
}

func (s *Service) IssueMembership(ctx context.Context, g MembershipGrant) (*Membership, error) {
	if g.EndsAt != nil && g.EndsAt.Before(g.StartsAt) {
		return nil, apperr.Validation("ends_at", "must not be before starts_at")
	}

	m := &Membership{
		ID:        uuid.New(),
		TenantID:  g.TenantID,
		UserID:    g.UserID,
		ProductID: g.ProductID,
		Status:    MembershipActive,
		StartsAt:  g.StartsAt,
		EndsAt:    g.EndsAt,
		CreatedAt: s.now(),
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.InsertMembership(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("insert membership: %w", err)
	}

	return m, nil
}

func (s *Service) ListCredits(ctx context.Context, tenantID, userID uuid.UUID) ([]Credit, error) {
	return s.repo.ListCredits(ctx, tenantID, userID)
}

func (s *Service) ListMemberships(ctx context.Context, tenantID, userID uuid.UUID) ([]Membership, error) {
	return s.repo.ListMemberships(ctx, tenantID, userID)
}

func (s *Service) Balance(ctx context.Context, tenantID, userID uuid.UUID) (*Balance, error) {
	var (
		credits     []Credit
		memberships []Membership
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		credits, err = s.repo.ListCredits(gctx, tenantID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		memberships, err = s.repo.ListMemberships(gctx, tenantID, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}

	return computeBalance(s.now(), credits, memberships), nil
}

func computeBalance(now time.Time, credits []Credit, memberships []Membership) *Balance {
	b := &Balance{}

	for _, c := range credits {
		if !c.EligibleAt(now) {
			continue
		}
		b.CreditsAvailable += c.Remaining()
		if c.ExpiresAt != nil && (b.NextCreditExpiration == nil || c.ExpiresAt.Before(*b.NextCreditExpiration)) {
			exp := *c.ExpiresAt
			b.NextCreditExpiration = &exp
		}
	}

	var current *Membership
	for i := range memberships {
		m := &memberships[i]
		if !m.ActiveAt(now) {
			continue
		}
		if current == nil || endsBefore(m.EndsAt, current.EndsAt) {
			current = m
		}
	}
	if current != nil {
		b.HasActiveMembership = true
		b.MembershipEndsAt = current.EndsAt
	}

	return b
}

// endsBefore orders end dates with unbounded last.
func endsBefore(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Before(*b)
}
