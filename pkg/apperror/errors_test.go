package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New("RATE_001", "Too many requests", http.StatusTooManyRequests)
	assert.Equal(t, "[RATE_001] Too many requests", err.Error())
}

func TestAppError_ErrorWithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, inner)
	assert.Contains(t, err.Error(), "SYS_001")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("db down")
	err := InternalError(inner)
	assert.ErrorIs(t, err, inner)
}

func TestTaxonomyCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"invalid signature", ErrInvalidSignature(), "SEC_001", http.StatusUnauthorized},
		{"in flight conflict", ErrIdempotencyInFlight(), "IDEM_001", http.StatusConflict},
		{"expired key", ErrIdempotencyKeyExpired(), "IDEM_002", http.StatusUnprocessableEntity},
		{"general rate limit", ErrRateLimitExceeded(), "RATE_001", http.StatusTooManyRequests},
		{"sensitive rate limit", ErrSensitiveRateLimitExceeded(), "RATE_002", http.StatusTooManyRequests},
		{"not found", ErrNotFound("invoice"), "PAY_001", http.StatusNotFound},
		{"already paid", ErrInvoiceAlreadyPaid(), "PAY_002", http.StatusConflict},
		{"invalid token", ErrInvalidToken(), "AUTH_001", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestConflictAndExpiredAreDistinct(t *testing.T) {
	// A client must be able to tell "retry later" from "do not retry".
	assert.NotEqual(t, ErrIdempotencyInFlight().Code, ErrIdempotencyKeyExpired().Code)
	assert.NotEqual(t, ErrRateLimitExceeded().Code, ErrSensitiveRateLimitExceeded().Code)
}
