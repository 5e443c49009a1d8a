package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitstudio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_bookings_total",
			Help: "Total number of booking admissions by resulting status and entitlement kind",
		},
		[]string{"status", "entitlement"},
	)

	BookingCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitstudio_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
	)

	WaitlistPromotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitstudio_waitlist_promotions_total",
			Help: "Total number of waitlisted bookings promoted to booked",
		},
	)

	CheckinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_checkins_total",
			Help: "Total number of attendance transitions",
		},
		[]string{"action"},
	)

	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitstudio_orders_created_total",
			Help: "Total number of orders created",
		},
	)

	OrdersPaidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_orders_paid_total",
			Help: "Total number of orders transitioned to paid",
		},
		[]string{"provider"},
	)

	EntitlementsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_entitlements_issued_total",
			Help: "Total number of credit and membership rows issued",
		},
		[]string{"kind"},
	)

	WebhookNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_webhook_notifications_total",
			Help: "Total number of payment notifications by outcome",
		},
		[]string{"outcome"},
	)

	ReconciledOrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_reconciled_orders_total",
			Help: "Total number of pending orders checked by the reconciler",
		},
		[]string{"result"},
	)

	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitstudio_audit_events_total",
			Help: "Total number of audit events drained",
		},
		[]string{"status"},
	)

	AuditQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitstudio_audit_queue_length",
			Help: "Current length of the audit queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status, entitlement string) {
	BookingsTotal.WithLabelValues(status, entitlement).Inc()
}

func RecordBookingCancellation() {
	BookingCancellationsTotal.Inc()
}

func RecordPromotion() {
	WaitlistPromotionsTotal.Inc()
}

func RecordCheckin(action string) {
	CheckinsTotal.WithLabelValues(action).Inc()
}

func RecordOrderCreated() {
	OrdersCreatedTotal.Inc()
}

func RecordOrderPaid(provider string) {
	OrdersPaidTotal.WithLabelValues(provider).Inc()
}

func RecordEntitlementIssued(kind string) {
	EntitlementsIssuedTotal.WithLabelValues(kind).Inc()
}

func RecordWebhook(outcome string) {
	WebhookNotificationsTotal.WithLabelValues(outcome).Inc()
}

func RecordReconciled(result string) {
	ReconciledOrdersTotal.WithLabelValues(result).Inc()
}

func RecordAuditEvent(status string) {
	AuditEventsTotal.WithLabelValues(status).Inc()
}
