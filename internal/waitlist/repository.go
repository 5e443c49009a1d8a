package waitlist

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fitstudio/internal/apperr"
	"fitstudio/internal/db"
)

var ErrEntryNotFound = apperr.New(apperr.ErrNotFound, "waitlist entry not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) NextPosition(ctx context.Context, sessionID uuid.UUID) (int, error) {
	query := `
		UPDATE sessions
		SET waitlist_seq = GREATEST(
			waitlist_seq,
			(SELECT COALESCE(MAX(position), 0) FROM waitlist_entries WHERE session_id = $1)
		) + 1
		WHERE id = $1
		RETURNING waitlist_seq
	`

	var next int
	err := db.Conn(ctx, r.db).GetContext(ctx, &next, query, sessionID)
	if err != nil {
		return 0, err
	}

	return next, nil
}

func (r *repository) Insert(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO waitlist_entries (id, tenant_id, session_id, user_id, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, query, e.ID, e.TenantID, e.SessionID, e.UserID, e.Position, e.CreatedAt)
	return err
}

func (r *repository) Head(ctx context.Context, sessionID uuid.UUID) (*Entry, error) {
	query := `
		SELECT id, tenant_id, session_id, user_id, position, created_at
		FROM waitlist_entries
		WHERE session_id = $1
		ORDER BY position ASC
		LIMIT 1
	`

	var e Entry
	err := db.Conn(ctx, r.db).GetContext(ctx, &e, query, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	return &e, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := db.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrEntryNotFound
	}

	return nil
}

func (r *repository) DeleteForUser(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	result, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID,
	)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *repository) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]Entry, error) {
	query := `
		SELECT id, tenant_id, session_id, user_id, position, created_at
		FROM waitlist_entries
		WHERE tenant_id = $1 AND session_id = $2
		ORDER BY position ASC
	`

	var entries []Entry
	err := db.Conn(ctx, r.db).SelectContext(ctx, &entries, query, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *repository) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Ranked, error) {
	query := `
		SELECT
			w.id, w.tenant_id, w.session_id, w.user_id, w.position, w.created_at,
			(SELECT COUNT(*) FROM waitlist_entries o
			 WHERE o.session_id = w.session_id AND o.position <= w.position) AS rank
		FROM waitlist_entries w
		WHERE w.tenant_id = $1 AND w.user_id = $2
		ORDER BY w.created_at DESC
	`

	var entries []Ranked
	err := db.Conn(ctx, r.db).SelectContext(ctx, &entries, query, tenantID, userID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
