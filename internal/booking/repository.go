package booking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"fitstudio/internal/apperr"
	"fitstudio/internal/db"
)

var ErrBookingNotFound = apperr.New(apperr.ErrNotFound, "booking not found")

const bookingColumns = `id, tenant_id, session_id, user_id, status, credit_id, membership_id, source, booked_at, cancelled_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountBooked(ctx context.Context, sessionID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE session_id = $1 AND status = 'booked'
	`

	var count int
	err := db.Conn(ctx, r.db).GetContext(ctx, &count, query, sessionID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) FindForUser(ctx context.Context, sessionID, userID uuid.UUID) (*Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE session_id = $1 AND user_id = $2
		FOR UPDATE
	`
	return r.get(ctx, query, sessionID, userID)
}

func (r *repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1 AND tenant_id = $2
	`
	return r.get(ctx, query, id, tenantID)
}

func (r *repository) get(ctx context.Context, query string, args ...interface{}) (*Booking, error) {
	var b Booking
	err := db.Conn(ctx, r.db).GetContext(ctx, &b, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) Insert(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (id, tenant_id, session_id, user_id, status, credit_id, membership_id, source, booked_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, query,
		b.ID, b.TenantID, b.SessionID, b.UserID, b.Status, b.CreditID, b.MembershipID, b.Source, b.BookedAt, b.CancelledAt)
	return err
}

func (r *repository) Update(ctx context.Context, b *Booking) error {
	query := `
		UPDATE bookings
		SET status = $2, credit_id = $3, membership_id = $4, booked_at = $5, cancelled_at = $6
		WHERE id = $1
	`

	result, err := db.Conn(ctx, r.db).ExecContext(ctx, query,
		b.ID, b.Status, b.CreditID, b.MembershipID, b.BookedAt, b.CancelledAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

func (r *repository) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY booked_at DESC
	`

	var bookings []Booking
	err := db.Conn(ctx, r.db).SelectContext(ctx, &bookings, query, tenantID, userID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tenant_id = $1 AND session_id = $2
		ORDER BY booked_at ASC
	`

	var bookings []Booking
	err := db.Conn(ctx, r.db).SelectContext(ctx, &bookings, query, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *repository) InsertCheckin(ctx context.Context, c *Checkin) error {
	query := `
		INSERT INTO checkins (id, booking_id, checked_in_at, method)
		VALUES ($1, $2, $3, $4)
	`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, query, c.ID, c.BookingID, c.CheckedInAt, c.Method)
	return err
}

func (r *repository) DeleteCheckin(ctx context.Context, bookingID uuid.UUID) error {
	query := `DELETE FROM checkins WHERE booking_id = $1`

	_, err := db.Conn(ctx, r.db).ExecContext(ctx, query, bookingID)
	return err
}
