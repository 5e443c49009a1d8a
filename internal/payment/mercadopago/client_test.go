package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitstudio/internal/apperr"
	"fitstudio/internal/payment"
)

func TestCreatePreference(t *testing.T) {
	orderID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body preferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, orderID.String(), body.ExternalReference)
		require.Len(t, body.Items, 1)
		assert.Equal(t, 1, body.Items[0].Quantity)
		assert.Equal(t, "MXN", body.Items[0].CurrencyID)
		assert.InDelta(t, 250.50, body.Items[0].UnitPrice, 0.0001)
		assert.Equal(t, "https://studio.example/webhooks/mercadopago", body.NotificationURL)
		assert.Equal(t, "approved", body.AutoReturn)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-123","init_point":"https://mp/checkout","sandbox_init_point":"https://sandbox/checkout"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-token", time.Second)
	pref, err := c.CreatePreference(context.Background(), payment.PreferenceRequest{
		OrderID:         orderID,
		TotalCents:      25050,
		Currency:        "MXN",
		NotificationURL: "https://studio.example/webhooks/mercadopago",
		SuccessURL:      "https://studio.example/checkout/success",
		FailureURL:      "https://studio.example/checkout/failure",
	})

	require.NoError(t, err)
	assert.Equal(t, "pref-123", pref.ID)
	assert.Equal(t, "https://mp/checkout", pref.CheckoutURL)
	assert.Equal(t, "https://sandbox/checkout", pref.SandboxCheckoutURL)
}

func TestFetchPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/987654", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":987654,"status":"approved","transaction_amount":150.0,"currency_id":"MXN","external_reference":"order-1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", time.Second)
	d, err := c.FetchPayment(context.Background(), "987654")

	require.NoError(t, err)
	assert.Equal(t, "987654", d.ID)
	assert.Equal(t, payment.StatusApproved, d.Status)
	require.NotNil(t, d.Amount)
	assert.InDelta(t, 150.0, *d.Amount, 0.0001)
	assert.Equal(t, "MXN", d.Currency)
	assert.Equal(t, "order-1", d.ExternalReference)
}

func TestFetchPayment_MissingAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"55","status":"pending"}`))
	}))
	defer srv.Close()

	d, err := New(srv.URL, "tok", time.Second).FetchPayment(context.Background(), "55")

	require.NoError(t, err)
	assert.Nil(t, d.Amount)
	assert.Empty(t, d.ExternalReference)
}

func TestFetchPayment_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"unavailable"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok", time.Second).FetchPayment(context.Background(), "1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrGateway)
	assert.Equal(t, http.StatusBadGateway, apperr.Status(err))
	assert.True(t, payment.IsRetryable(err))

	var gwErr *payment.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.Contains(t, gwErr.Body, "unavailable")
}

func TestFetchPayment_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok", 20*time.Millisecond).FetchPayment(context.Background(), "1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrGateway)
	assert.True(t, payment.IsRetryable(err))
}

func TestSearchPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/search", r.URL.Path)
		assert.Equal(t, "order-7", r.URL.Query().Get("external_reference"))
		assert.Equal(t, "desc", r.URL.Query().Get("criteria"))
		_, _ = w.Write([]byte(`{"results":[
			{"id":2,"status":"approved","transaction_amount":10,"currency_id":"MXN","external_reference":"order-7"},
			{"id":1,"status":"rejected","transaction_amount":10,"currency_id":"MXN","external_reference":"order-7"}
		]}`))
	}))
	defer srv.Close()

	results, err := New(srv.URL, "tok", time.Second).SearchPayments(context.Background(), "order-7")

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2", results[0].ID)
	assert.Equal(t, payment.StatusRejected, results[1].Status)
}

func TestNew_DefaultBaseURL(t *testing.T) {
	c := New("", "tok", time.Second)
	assert.Equal(t, DefaultBaseURL, c.baseURL)

	c = New("https://api.example/", "tok", time.Second)
	assert.Equal(t, "https://api.example", c.baseURL)
}
