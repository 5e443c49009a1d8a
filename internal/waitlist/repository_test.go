package waitlist

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
)

var entryCols = []string{"id", "tenant_id", "session_id", "user_id", "position", "created_at"}

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	return repo, mock, func() { sqlxDB.Close() }
}

func TestNextPosition(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	sessionID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE sessions SET waitlist_seq = GREATEST(")).
		WithArgs(sessionID).
		WillReturnRows(sqlmock.NewRows([]string{"waitlist_seq"}).AddRow(5))

	next, err := repo.NextPosition(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 5, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHead(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	sessionID, id := uuid.New(), uuid.New()
	query := regexp.QuoteMeta("FROM waitlist_entries WHERE session_id = $1 ORDER BY position ASC LIMIT 1")

	mock.ExpectQuery(query).
		WithArgs(sessionID).
		WillReturnRows(sqlmock.NewRows(entryCols).AddRow(id.String(), uuid.NewString(), sessionID.String(), uuid.NewString(), 3, time.Now()))

	e, err := repo.Head(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, id, e.ID)
	assert.Equal(t, 3, e.Position)

	mock.ExpectQuery(query).WithArgs(sessionID).WillReturnRows(sqlmock.NewRows(entryCols))

	_, err = repo.Head(context.Background(), sessionID)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist_entries WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrEntryNotFound)

	sessionID, userID := uuid.New(), uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist_entries WHERE session_id = $1 AND user_id = $2")).
		WithArgs(sessionID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.DeleteForUser(context.Background(), sessionID, userID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestListByUser(t *testing.T) {
	repo, mock, close := setupMock(t)
	defer close()

	tenantID, userID := uuid.New(), uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("AS rank FROM waitlist_entries w WHERE w.tenant_id = $1 AND w.user_id = $2")).
		WithArgs(tenantID, userID).
		WillReturnRows(sqlmock.NewRows(append(entryCols, "rank")).
			AddRow(uuid.NewString(), tenantID.String(), uuid.NewString(), userID.String(), 12, time.Now(), 2))

	list, err := repo.ListByUser(context.Background(), tenantID, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 12, list[0].Position)
	assert.Equal(t, 2, list[0].Rank)
}
