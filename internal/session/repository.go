package session

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

var ErrSessionNotFound = apperr.New(apperr.ErrNotFound, "session not found")

const sessionColumns = `id, tenant_id, class_type, starts_at, ends_at, capacity, status, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO sessions (id, tenant_id, class_type, starts_at, ends_at, capacity, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.TenantID, s.ClassType, s.StartsAt, s.EndsAt, s.Capacity, s.Status, s.CreatedAt)
	return err
}

func (r *repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1 AND tenant_id = $2
	`
	return r.get(ctx, query, id, tenantID)
}

func (r *repository) LockByID(ctx context.Context, tenantID, id uuid.UUID) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1 AND tenant_id = $2
		FOR UPDATE
	`
	return r.get(ctx, query, id, tenantID)
}

func (r *repository) get(ctx context.Context, query string, args ...interface{}) (*Session, error) {
	var s Session
	err := db.Conn(ctx, r.db).GetContext(ctx, &s, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) ListWithAvailability(ctx context.Context, tenantID uuid.UUID, from *time.Time) ([]WithAvailability, error) {
	query := `
		SELECT s.id, s.tenant_id, s.class_type, s.starts_at, s.ends_at, s.capacity, s.status, s.created_at,
			COALESCE(COUNT(b.id), 0) AS booked_count
		FROM sessions s
		LEFT JOIN bookings b ON b.session_id = s.id AND b.status = 'booked'
		WHERE s.tenant_id = $1 AND ($2::timestamptz IS NULL OR s.starts_at > $2)
		GROUP BY s.id
		ORDER BY s.starts_at ASC
	`

	var sessions []WithAvailability
	err := db.Conn(ctx, r.db).SelectContext(ctx, &sessions, query, tenantID, from)
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		sessions[i].fill()
	}
	return sessions, nil
}
