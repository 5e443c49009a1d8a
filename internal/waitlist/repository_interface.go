package waitlist

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// NextPosition reserves the session's next waitlist position. Reserved
	// positions are never handed out again, even after their entry is deleted.
	NextPosition(ctx context.Context, sessionID uuid.UUID) (int, error)
	Insert(ctx context.Context, e *Entry) error
	Head(ctx context.Context, sessionID uuid.UUID) (*Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteForUser(ctx context.Context, sessionID, userID uuid.UUID) (bool, error)
	ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]Entry, error)
	ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Ranked, error)
}
