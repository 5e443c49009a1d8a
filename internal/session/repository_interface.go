package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Session, error)
	// LockByID holds the session row until the surrounding transaction ends.
	LockByID(ctx context.Context, tenantID, id uuid.UUID) (*Session, error)
	ListWithAvailability(ctx context.Context, tenantID uuid.UUID, from *time.Time) ([]WithAvailability, error)
}
