package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/bookings", "200", 0.5)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/bookings", "200"))
	assert.Equal(t, float64(1), count)
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/webhooks/mercadopago", "200", 0.1)
	RecordHTTPRequest("POST", "/webhooks/mercadopago", "200", 0.2)
	RecordHTTPRequest("POST", "/webhooks/mercadopago", "401", 0.05)

	okCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/webhooks/mercadopago", "200"))
	failCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/webhooks/mercadopago", "401"))

	assert.Equal(t, float64(2), okCount)
	assert.Equal(t, float64(1), failCount)
}

func TestRecordBooking(t *testing.T) {
	BookingsTotal.Reset()

	RecordBooking("booked", "credit")
	RecordBooking("booked", "membership")
	RecordBooking("waitlist", "none")
	RecordBooking("booked", "credit")

	assert.Equal(t, float64(2), testutil.ToFloat64(BookingsTotal.WithLabelValues("booked", "credit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingsTotal.WithLabelValues("booked", "membership")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingsTotal.WithLabelValues("waitlist", "none")))
}

func TestRecordBookingCancellation(t *testing.T) {
	testCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fitstudio_booking_cancellations_total_test",
			Help: "Total number of booking cancellations",
		},
	)

	oldCounter := BookingCancellationsTotal
	BookingCancellationsTotal = testCounter
	defer func() { BookingCancellationsTotal = oldCounter }()

	RecordBookingCancellation()
	RecordBookingCancellation()

	assert.Equal(t, float64(2), testutil.ToFloat64(testCounter))
}

func TestRecordPromotion(t *testing.T) {
	testCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fitstudio_waitlist_promotions_total_test",
			Help: "Total number of waitlisted bookings promoted to booked",
		},
	)

	oldCounter := WaitlistPromotionsTotal
	WaitlistPromotionsTotal = testCounter
	defer func() { WaitlistPromotionsTotal = oldCounter }()

	RecordPromotion()

	assert.Equal(t, float64(1), testutil.ToFloat64(testCounter))
}

func TestRecordOrderPaidAndEntitlements(t *testing.T) {
	OrdersPaidTotal.Reset()
	EntitlementsIssuedTotal.Reset()

	RecordOrderPaid("mercadopago")
	RecordOrderPaid("manual")
	RecordEntitlementIssued("credit")
	RecordEntitlementIssued("credit")
	RecordEntitlementIssued("membership")

	assert.Equal(t, float64(1), testutil.ToFloat64(OrdersPaidTotal.WithLabelValues("mercadopago")))
	assert.Equal(t, float64(1), testutil.ToFloat64(OrdersPaidTotal.WithLabelValues("manual")))
	assert.Equal(t, float64(2), testutil.ToFloat64(EntitlementsIssuedTotal.WithLabelValues("credit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(EntitlementsIssuedTotal.WithLabelValues("membership")))
}

func TestRecordWebhook(t *testing.T) {
	WebhookNotificationsTotal.Reset()

	RecordWebhook("processed")
	RecordWebhook("duplicate")
	RecordWebhook("duplicate")

	assert.Equal(t, float64(1), testutil.ToFloat64(WebhookNotificationsTotal.WithLabelValues("processed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(WebhookNotificationsTotal.WithLabelValues("duplicate")))
}

func TestRecordReconciledAndAudit(t *testing.T) {
	ReconciledOrdersTotal.Reset()
	AuditEventsTotal.Reset()
	CheckinsTotal.Reset()

	RecordReconciled("paid")
	RecordAuditEvent("stored")
	RecordCheckin("attended")

	assert.Equal(t, float64(1), testutil.ToFloat64(ReconciledOrdersTotal.WithLabelValues("paid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(AuditEventsTotal.WithLabelValues("stored")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CheckinsTotal.WithLabelValues("attended")))
}

func TestAuditQueueLength(t *testing.T) {
	AuditQueueLength.Set(10)
	assert.Equal(t, float64(10), testutil.ToFloat64(AuditQueueLength))

	AuditQueueLength.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(AuditQueueLength))
}
