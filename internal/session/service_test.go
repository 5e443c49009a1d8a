package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitstudio/internal/apperr"
	"fitstudio/internal/audit"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Insert(ctx context.Context, s *Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Session, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) LockByID(ctx context.Context, tenantID, id uuid.UUID) (*Session, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) ListWithAvailability(ctx context.Context, tenantID uuid.UUID, from *time.Time) ([]WithAvailability, error) {
	args := m.Called(ctx, tenantID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WithAvailability), args.Error(1)
}

type recordingSink struct {
	events []audit.Event
}

func (r *recordingSink) Record(_ context.Context, ev audit.Event) error {
	r.events = append(r.events, ev)
	return nil
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(repo Repository, sink audit.Sink) *Service {
	return NewService(repo, sink, WithClock(func() time.Time { return fixedNow }))
}

func TestService_Create(t *testing.T) {
	mockRepo := new(MockRepository)
	sink := &recordingSink{}
	service := newTestService(mockRepo, sink)
	tenantID, actorID := uuid.New(), uuid.New()

	mockRepo.On("Insert", mock.Anything, mock.MatchedBy(func(s *Session) bool {
		return s.TenantID == tenantID && s.Capacity == 8 && s.Status == StatusScheduled && s.EndsAt != nil
	})).Return(nil)

	sess, err := service.Create(context.Background(), tenantID, &actorID, CreateRequest{
		ClassType: "yoga",
		StartsAt:  "2026-03-11T09:00:00Z",
		EndsAt:    "2026-03-11T10:00:00Z",
		Capacity:  8,
	})

	require.NoError(t, err)
	assert.Equal(t, "yoga", sess.ClassType)
	assert.Equal(t, fixedNow, sess.CreatedAt)
	require.Len(t, sink.events, 1)
	assert.Equal(t, audit.ActionSessionCreated, sink.events[0].Action)
	mockRepo.AssertExpectations(t)
}

func TestService_Create_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"bad start", CreateRequest{ClassType: "yoga", StartsAt: "tomorrow", Capacity: 1}},
		{"bad end", CreateRequest{ClassType: "yoga", StartsAt: "2026-03-11T09:00:00Z", EndsAt: "later", Capacity: 1}},
		{"end before start", CreateRequest{ClassType: "yoga", StartsAt: "2026-03-11T09:00:00Z", EndsAt: "2026-03-11T08:00:00Z", Capacity: 1}},
		{"zero capacity", CreateRequest{ClassType: "yoga", StartsAt: "2026-03-11T09:00:00Z", Capacity: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := newTestService(mockRepo, audit.NopSink{})

			_, err := service.Create(context.Background(), uuid.New(), nil, tt.req)
			assert.True(t, apperr.IsValidation(err))
			mockRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Create_RepoError(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, audit.NopSink{})

	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := service.Create(context.Background(), uuid.New(), nil, CreateRequest{
		ClassType: "yoga", StartsAt: "2026-03-11T09:00:00Z", Capacity: 3,
	})
	assert.Error(t, err)
}

func TestService_List(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, audit.NopSink{})
	tenantID := uuid.New()

	mockRepo.On("ListWithAvailability", mock.Anything, tenantID, mock.MatchedBy(func(from *time.Time) bool {
		return from != nil && from.Equal(fixedNow)
	})).Return([]WithAvailability{{BookedCount: 1}}, nil)
	mockRepo.On("ListWithAvailability", mock.Anything, tenantID, (*time.Time)(nil)).
		Return([]WithAvailability{{}, {}}, nil)

	upcoming, err := service.List(context.Background(), tenantID, true)
	require.NoError(t, err)
	assert.Len(t, upcoming, 1)

	all, err := service.List(context.Background(), tenantID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
