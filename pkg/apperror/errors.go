package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses. Every entry of
// the gateway's error taxonomy gets its own code so callers branch on kind
// instead of parsing messages.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Webhook Authenticity (SEC) ----

// ErrInvalidSignature rejects a webhook whose HMAC does not match. No state is
// touched and no failure record is created; authenticity failures are not
// retry candidates.
func ErrInvalidSignature() *AppError {
	return New("SEC_001", "Invalid webhook signature", http.StatusUnauthorized)
}

// ---- Idempotency (IDEM) ----

// ErrIdempotencyInFlight signals a same-key request is still processing.
// Distinct from "already processed" so the client knows to retry later rather
// than treat the operation as done.
func ErrIdempotencyInFlight() *AppError {
	return New("IDEM_001", "Request with this idempotency key is still processing", http.StatusConflict)
}

// ErrIdempotencyKeyExpired rejects reuse of a key past its TTL. The original
// operation is assumed acknowledged; replaying it silently is never safe.
func ErrIdempotencyKeyExpired() *AppError {
	return New("IDEM_002", "Idempotency key has expired", http.StatusUnprocessableEntity)
}

// ---- Rate Limiting (RATE) ----

// ErrRateLimitExceeded signals the general-tier window is exhausted.
func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Too many requests, please try again later", http.StatusTooManyRequests)
}

// ErrSensitiveRateLimitExceeded signals the stricter sensitive-operation
// window is exhausted.
func ErrSensitiveRateLimitExceeded() *AppError {
	return New("RATE_002", "Too many sensitive operations, please slow down", http.StatusTooManyRequests)
}

// ---- Domain (PAY) ----

func ErrNotFound(entity string) *AppError {
	return New("PAY_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvoiceAlreadyPaid() *AppError {
	return New("PAY_002", "Invoice is already paid", http.StatusConflict)
}

// ---- Operator Auth (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// Validation returns a 400 validation error.
func Validation(message string) *AppError {
	return New("SYS_002", message, http.StatusBadRequest)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
