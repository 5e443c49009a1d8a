// Package worker runs the background payment reconciliation.
package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"
	"fitstudio/internal/order"
)

const defaultBatchSize = 50

type PendingOrders interface {
	ListPendingBefore(ctx context.Context, provider string, before time.Time, limit int) ([]order.Order, error)
}

type PaymentChecker interface {
	ReconcilePayment(ctx context.Context, o *order.Order) (*order.Result, error)
}

type Option func(*Reconciler)

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithBatchSize(n int) Option {
	return func(r *Reconciler) { r.batchSize = n }
}

// Reconciler asks the provider about Mercado Pago orders still pending after
// the grace period. It covers notifications that never arrived.
type Reconciler struct {
	orders    PendingOrders
	checker   PaymentChecker
	interval  time.Duration
	grace     time.Duration
	workers   int
	batchSize int
	now       func() time.Time
}

func NewReconciler(orders PendingOrders, checker PaymentChecker, interval, grace time.Duration, workers int, opts ...Option) *Reconciler {
	if workers < 1 {
		workers = 1
	}
	r := &Reconciler{
		orders:    orders,
		checker:   checker,
		interval:  interval,
		grace:     grace,
		workers:   workers,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start polls until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Info("payment reconciler started", "interval", r.interval.String(), "grace", r.grace.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("payment reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				logger.WithError(err).Error("reconciliation cycle failed")
			}
		}
	}
}

// RunOnce checks one batch of stale pending orders and returns how many were
// marked paid. Failures on single orders are logged and do not stop the batch.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.orders.ListPendingBefore(ctx, order.ProviderMercadoPago, r.now().Add(-r.grace), r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		logger.Debug("no pending orders to reconcile")
		return 0, nil
	}

	logger.Info("reconciling pending orders", "count", len(pending))

	outcomes := make([]order.Outcome, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range pending {
		i := i
		g.Go(func() error {
			o := &pending[i]
			res, err := r.checker.ReconcilePayment(gctx, o)
			if err != nil {
				metrics.RecordReconciled("error")
				logger.WithError(err).Warn("order reconciliation failed", "order_id", o.ID)
				return nil
			}
			outcomes[i] = res.Outcome
			metrics.RecordReconciled(string(res.Outcome))
			return nil
		})
	}
	_ = g.Wait()

	paid := 0
	for _, outcome := range outcomes {
		if outcome == order.OutcomeProcessed {
			paid++
		}
	}

	logger.Info("reconciliation cycle completed", "checked", len(pending), "paid", paid)
	return paid, nil
}
