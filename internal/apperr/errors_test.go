package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation field", Validation("items", "must not be empty"), http.StatusBadRequest},
		{"not found", New(ErrNotFound, "session not found"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("book: %w", New(ErrNotFound, "session not found")), http.StatusNotFound},
		{"no entitlement", New(ErrNoEntitlement, "buy a class"), http.StatusPaymentRequired},
		{"conflict", New(ErrConflict, "full"), http.StatusConflict},
		{"unauthorized", New(ErrUnauthorized, "bad secret"), http.StatusUnauthorized},
		{"unprocessable", New(ErrUnprocessable, "amount mismatch"), http.StatusUnprocessableEntity},
		{"gateway", New(ErrGateway, "timeout"), http.StatusBadGateway},
		{"overflow", New(ErrOverflow, "credit overflow"), http.StatusInternalServerError},
		{"misconfigured", New(ErrMisconfigured, "no token"), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestErrorIdentity(t *testing.T) {
	errSessionNotFound := New(ErrNotFound, "session not found")
	wrapped := fmt.Errorf("lock session: %w", errSessionNotFound)

	assert.True(t, errors.Is(wrapped, errSessionNotFound))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, "session not found", errSessionNotFound.Error())
	assert.Equal(t, "not found", New(ErrNotFound, "").Error())
}

func TestPublicMessageHidesInternalErrors(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(errors.New("pq: connection refused")))
	assert.Equal(t, "session not found", PublicMessage(New(ErrNotFound, "session not found")))
	assert.True(t, IsRetryable(New(ErrGateway, "timeout")))
}
