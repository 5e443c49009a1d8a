package waitlist

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/db"
)

type Option func(*Queue)

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// Queue is the FIFO of overflow requests per session. Callers mutate it while
// holding the session row lock, which serializes position allocation.
type Queue struct {
	repo Repository
	tx   db.TxManager
	now  func() time.Time
}

func NewQueue(repo Repository, tx db.TxManager, opts ...Option) *Queue {
	q := &Queue{repo: repo, tx: tx, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends the user after every position the session has handed out.
func (q *Queue) Enqueue(ctx context.Context, tenantID, sessionID, userID uuid.UUID) (*Entry, error) {
	var entry *Entry
	err := q.tx.WithinTx(ctx, func(ctx context.Context) error {
		position, err := q.repo.NextPosition(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("next position: %w", err)
		}

		entry = &Entry{
			ID:        uuid.New(),
			TenantID:  tenantID,
			SessionID: sessionID,
			UserID:    userID,
			Position:  position,
			CreatedAt: q.now(),
		}
		return q.repo.Insert(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Head returns the lowest-position entry or ErrEntryNotFound.
func (q *Queue) Head(ctx context.Context, sessionID uuid.UUID) (*Entry, error) {
	return q.repo.Head(ctx, sessionID)
}

func (q *Queue) Remove(ctx context.Context, entryID uuid.UUID) error {
	return q.repo.Delete(ctx, entryID)
}

// RemoveForUser drops the user's entry if there is one.
func (q *Queue) RemoveForUser(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	return q.repo.DeleteForUser(ctx, sessionID, userID)
}

func (q *Queue) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]Ranked, error) {
	entries, err := q.repo.ListBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	return Rank(entries), nil
}

func (q *Queue) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Ranked, error) {
	return q.repo.ListByUser(ctx, tenantID, userID)
}

// Rank orders entries by position and numbers them from 1.
func Rank(entries []Entry) []Ranked {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	ranked := make([]Ranked, len(sorted))
	for i, e := range sorted {
		ranked[i] = Ranked{Entry: e, Rank: i + 1}
	}
	return ranked
}
