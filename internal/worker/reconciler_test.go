package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitstudio/internal/apperr"
	"fitstudio/internal/order"
)

type MockOrders struct{ mock.Mock }

func (m *MockOrders) ListPendingBefore(ctx context.Context, provider string, before time.Time, limit int) ([]order.Order, error) {
	args := m.Called(ctx, provider, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

type fakeChecker struct {
	mu       sync.Mutex
	seen     []uuid.UUID
	outcomes map[uuid.UUID]order.Outcome
	failures map[uuid.UUID]error
}

func (f *fakeChecker) ReconcilePayment(_ context.Context, o *order.Order) (*order.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, o.ID)
	if err, ok := f.failures[o.ID]; ok {
		return nil, err
	}
	return &order.Result{Outcome: f.outcomes[o.ID], OrderID: &o.ID}, nil
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestRunOnce(t *testing.T) {
	paid, pending, broken := uuid.New(), uuid.New(), uuid.New()
	orders := new(MockOrders)
	orders.On("ListPendingBefore", mock.Anything, order.ProviderMercadoPago, fixedNow.Add(-10*time.Minute), 20).
		Return([]order.Order{{ID: paid}, {ID: pending}, {ID: broken}}, nil)

	checker := &fakeChecker{
		outcomes: map[uuid.UUID]order.Outcome{
			paid:    order.OutcomeProcessed,
			pending: order.OutcomeNotApproved,
		},
		failures: map[uuid.UUID]error{broken: apperr.ErrGateway},
	}

	r := NewReconciler(orders, checker, time.Minute, 10*time.Minute, 2,
		WithClock(func() time.Time { return fixedNow }),
		WithBatchSize(20),
	)

	n, err := r.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, []uuid.UUID{paid, pending, broken}, checker.seen)
	orders.AssertExpectations(t)
}

func TestRunOnce_NothingPending(t *testing.T) {
	orders := new(MockOrders)
	orders.On("ListPendingBefore", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]order.Order{}, nil)
	checker := &fakeChecker{}

	n, err := NewReconciler(orders, checker, time.Minute, time.Minute, 4).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, checker.seen)
}

func TestRunOnce_ListFailure(t *testing.T) {
	orders := new(MockOrders)
	orders.On("ListPendingBefore", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := NewReconciler(orders, &fakeChecker{}, time.Minute, time.Minute, 0).RunOnce(context.Background())

	assert.Error(t, err)
}

func TestStart_StopsOnCancel(t *testing.T) {
	orders := new(MockOrders)
	orders.On("ListPendingBefore", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]order.Order{}, nil)
	r := NewReconciler(orders, &fakeChecker{}, 5*time.Millisecond, time.Minute, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
