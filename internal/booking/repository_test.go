package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitstudio/internal/ledger"
)

var bookingCols = []string{"id", "tenant_id", "session_id", "user_id", "status", "credit_id", "membership_id", "source", "booked_at", "cancelled_at"}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewRepository(sqlx.NewDb(sqlDB, "sqlmock")), mock
}

func TestRepository_CountBooked(t *testing.T) {
	repo, mock := newMockRepo(t)
	sessionID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = $1 AND status = 'booked'`)).
		WithArgs(sessionID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountBooked(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindForUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, tenantID, sessionID, userID, creditID := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()
	bookedAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = $1 AND user_id = $2 FOR UPDATE`)).
		WithArgs(sessionID, userID).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(id.String(), tenantID.String(), sessionID.String(), userID.String(), "booked",
				creditID.String(), nil, "web", bookedAt, nil))

	b, err := repo.FindForUser(context.Background(), sessionID, userID)
	require.NoError(t, err)
	assert.Equal(t, StatusBooked, b.Status)
	assert.Equal(t, &ledger.Ref{Kind: ledger.KindCredit, ID: creditID}, b.Entitlement())
	assert.Nil(t, b.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindForUser_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	sessionID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = $1 AND user_id = $2`)).
		WithArgs(sessionID, userID).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := repo.FindForUser(context.Background(), sessionID, userID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestRepository_GetByID_ScopedToTenant(t *testing.T) {
	repo, mock := newMockRepo(t)
	id, tenantID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND tenant_id = $2`)).
		WithArgs(id, tenantID).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := repo.GetByID(context.Background(), tenantID, id)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Insert(t *testing.T) {
	repo, mock := newMockRepo(t)
	membershipID := uuid.New()
	b := &Booking{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		SessionID:    uuid.New(),
		UserID:       uuid.New(),
		Status:       StatusBooked,
		MembershipID: &membershipID,
		Source:       SourceWeb,
		BookedAt:     time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookings`)).
		WithArgs(b.ID, b.TenantID, b.SessionID, b.UserID, b.Status, nil, membershipID, b.Source, b.BookedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update(t *testing.T) {
	repo, mock := newMockRepo(t)
	cancelledAt := time.Now()
	b := &Booking{ID: uuid.New(), Status: StatusCancelled, BookedAt: time.Now(), CancelledAt: &cancelledAt}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bookings SET status = $2`)).
		WithArgs(b.ID, b.Status, nil, nil, b.BookedAt, cancelledAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update_Missing(t *testing.T) {
	repo, mock := newMockRepo(t)
	b := &Booking{ID: uuid.New(), Status: StatusBooked}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bookings`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Update(context.Background(), b), ErrBookingNotFound)
}

func TestRepository_ListByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	tenantID, userID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE tenant_id = $1 AND user_id = $2 ORDER BY booked_at DESC`)).
		WithArgs(tenantID, userID).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(uuid.NewString(), tenantID.String(), uuid.NewString(), userID.String(), "waitlist", nil, nil, "web", now, nil).
			AddRow(uuid.NewString(), tenantID.String(), uuid.NewString(), userID.String(), "cancelled", nil, nil, "web", now, now))

	bookings, err := repo.ListByUser(context.Background(), tenantID, userID)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, StatusWaitlist, bookings[0].Status)
	assert.NotNil(t, bookings[1].CancelledAt)
}

func TestRepository_Checkins(t *testing.T) {
	repo, mock := newMockRepo(t)
	c := &Checkin{ID: uuid.New(), BookingID: uuid.New(), CheckedInAt: time.Now(), Method: "staff"}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO checkins`)).
		WithArgs(c.ID, c.BookingID, c.CheckedInAt, c.Method).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM checkins WHERE booking_id = $1`)).
		WithArgs(c.BookingID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.InsertCheckin(context.Background(), c))
	require.NoError(t, repo.DeleteCheckin(context.Background(), c.BookingID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
