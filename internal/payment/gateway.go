// Package payment describes the payment provider the order processor talks to.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/google/uuid"

	"fitstudio/internal/apperr"
)

const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

type PreferenceRequest struct {
	OrderID         uuid.UUID
	Title           string
	TotalCents      int64
	Currency        string
	NotificationURL string
	SuccessURL      string
	FailureURL      string
}

type Preference struct {
	ID                 string `json:"preference_id"`
	CheckoutURL        string `json:"checkout_url"`
	SandboxCheckoutURL string `json:"sandbox_checkout_url"`
}

// Details is a payment as reported by the provider. Amount is in major units
// and nil when the provider omitted it.
type Details struct {
	ID                string
	Status            string
	Amount            *float64
	Currency          string
	ExternalReference string
}

type Gateway interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	FetchPayment(ctx context.Context, paymentID string) (*Details, error)
	SearchPayments(ctx context.Context, externalReference string) ([]Details, error)
}

// Error is a failed provider call. It matches apperr.ErrGateway.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: provider answered %d", e.Op, e.StatusCode)
	default:
		return e.Op + ": provider request failed"
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{apperr.ErrGateway}
	}
	return []error{apperr.ErrGateway, e.Err}
}

// IsRetryable reports whether repeating the call may succeed: provider 5xx,
// throttling, timeouts and refused or reset connections.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.StatusCode != 0 {
		return gwErr.StatusCode >= http.StatusInternalServerError || gwErr.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
