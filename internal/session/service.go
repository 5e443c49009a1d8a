package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/apperr"
	"fitstudio/internal/audit"
)

var ErrInvalidSession = apperr.New(apperr.ErrValidation, "invalid session")

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repo  Repository
	audit audit.Sink
	now   func() time.Time
}

func NewService(repo Repository, sink audit.Sink, opts ...Option) *Service {
	s := &Service{repo: repo, audit: sink, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateRequest) (*Session, error) {
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, apperr.Validation("starts_at", "must be RFC3339")
	}

	var endsAt *time.Time
	if req.EndsAt != "" {
		t, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			return nil, apperr.Validation("ends_at", "must be RFC3339")
		}
		if !t.After(startsAt) {
			return nil, ErrInvalidSession
		}
		endsAt = &t
	}

	if req.Capacity <= 0 {
		return nil, apperr.Validation("capacity", "must be positive")
	}

	sess := &Session{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ClassType: req.ClassType,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Capacity:  req.Capacity,
		Status:    StatusScheduled,
		CreatedAt: s.now(),
	}
	if err := s.repo.Insert(ctx, sess); err != nil {
		return nil, err
	}

	audit.Log(ctx, s.audit, audit.NewEvent(tenantID, actorID, audit.ActionSessionCreated, "session", sess.ID,
		map[string]any{"class_type": sess.ClassType, "capacity": sess.Capacity}))

	return sess, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns sessions with live availability. Upcoming restricts to sessions
// that have not started yet.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, upcoming bool) ([]WithAvailability, error) {
	var from *time.Time
	if upcoming {
		now := s.now()
		from = &now
	}
	return s.repo.ListWithAvailability(ctx, tenantID, from)
}
