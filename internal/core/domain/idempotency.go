package domain

import (
	"errors"
	"time"
)

// ErrDuplicateKey is returned when reserving an idempotency key that already
// exists. The unique constraint backing the reservation makes check-then-insert
// a single atomic operation, so exactly one caller ever wins a key.
var ErrDuplicateKey = errors.New("idempotency key already exists")

// IdempotencyStatus tracks whether the guarded operation has finished.
type IdempotencyStatus string

const (
	// IdempotencyStatusPending marks a key reserved by an in-flight request.
	IdempotencyStatusPending IdempotencyStatus = "PENDING"
	// IdempotencyStatusCompleted marks a key whose result has been captured.
	IdempotencyStatusCompleted IdempotencyStatus = "COMPLETED"
)

// IdempotencyRecord stores the captured result of a guarded mutating request.
// Records are created once, never mutated after completion, and expire after
// ExpiresAt. An expired key is an error on reuse: the operation it guarded is
// assumed long acknowledged, and reprocessing it silently could double-charge.
type IdempotencyRecord struct {
	Key          string            `json:"key"`
	Status       IdempotencyStatus `json:"status"`
	ResultStatus int               `json:"result_status"`
	ResultBody   []byte            `json:"result_body"`
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// IsExpired reports whether the record's TTL has passed at the given instant.
func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IsCompleted reports whether a result has been captured for the key.
func (r *IdempotencyRecord) IsCompleted() bool {
	return r.Status == IdempotencyStatusCompleted
}
