package ledger

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

var (
	ErrCreditNotFound     = apperr.New(apperr.ErrNotFound, "credit not found")
	ErrMembershipNotFound = apperr.New(apperr.ErrNotFound, "membership not found")
	ErrCreditOverflow     = apperr.New(apperr.ErrOverflow, "credit usage would exceed credits total")
)

const (
	creditColumns     = `id, tenant_id, user_id, source_order_item_id, credits_total, credits_used, expires_at, created_at`
	membershipColumns = `id, tenant_id, user_id, product_id, status, starts_at, ends_at, created_at`
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) LockActiveMembership(ctx context.Context, tenantID, userID uuid.UUID, now time.Time) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2 AND status = 'active'
			AND starts_at <= $3 AND (ends_at IS NULL OR ends_at >= $3)
		ORDER BY ends_at ASC NULLS LAST, created_at ASC
		LIMIT 1
		FOR UPDATE
	`

	var m Membership
	err := db.Conn(ctx, r.db).GetContext(ctx, &m, query, tenantID, userID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	return &m, nil
}

func (r *repository) LockEligibleCredit(ctx context.Context, tenantID, userID uuid.UUID, now time.Time) (*Credit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credits
		WHERE tenant_id = $1 AND user_id = $2 AND credits_used < credits_total
			AND (expires_at IS NULL OR expires_at >= $3)
		ORDER BY expires_at ASC NULLS LAST, created_at ASC
		LIMIT 1
		FOR UPDATE
	`

	// A credit exhausted by the transaction we waited on drops out of the
	// result entirely; the second attempt sees the next one.
	var c Credit
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = db.Conn(ctx, r.db).GetContext(ctx, &c, query, tenantID, userID, now)
		if !errors.Is(err, sql.ErrNoRows) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCreditNotFound
		}
		return nil, err
	}

	return &c, nil
}

func (r *repository) IncrementCreditUsed(ctx context.Context, creditID uuid.UUID) error {
	query := `
		UPDATE credits
		SET credits_used = credits_used + 1
		WHERE id = $1 AND credits_used < credits_total
	`

	result, err := db.Conn(ctx, r.db).ExecContext(ctx, query, creditID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrCreditOverflow
	}

	return nil
}

func (r *repository) DecrementCreditUsed(ctx context.Context, creditID uuid.UUID) error {
	query := `
		UPDATE credits
		SET credits_used = GREATEST(credits_used - 1, 0)
		WHERE id = $1
	`

	result, err := db.Conn(ctx, r.db).ExecContext(ctx, query, creditID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrCreditNotFound
	}

	return nil
}

func (r *repository) InsertCredit(ctx context.Context, c *Credit) error {
	query := `
		INSERT INTO credits (id, tenant_id, user_id, source_order_item_id, credits_total, credits_used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, query,
		c.ID, c.TenantID, c.UserID, c.SourceOrderItemID, c.CreditsTotal, c.CreditsUsed, c.ExpiresAt, c.CreatedAt,
	)
	return err
}

func (r *repository) InsertMembership(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO memberships (id, tenant_id, user_id, product_id, status, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, query,
		m.ID, m.TenantID, m.UserID, m.ProductID, m.Status, m.StartsAt, m.EndsAt, m.CreatedAt,
	)
	return err
}

func (r *repository) ListCredits(ctx context.Context, tenantID, userID uuid.UUID) ([]Credit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credits
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`

	var credits []Credit
	err := db.Conn(ctx, r.db).SelectContext(ctx, &credits, query, tenantID, userID)
	if err != nil {
		return nil, err
	}

	return credits, nil
}

func (r *repository) ListMemberships(ctx context.Context, tenantID, userID uuid.UUID) ([]Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY starts_at DESC
	`

	var memberships []Membership
	err := db.Conn(ctx, r.db).SelectContext(ctx, &memberships, query, tenantID, userID)
	if err != nil {
		return nil, err
	}

	return memberships, nil
}
