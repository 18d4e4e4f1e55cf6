package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentpay-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository on a table with a
// primary key on the idempotency key. Reserve relies on that constraint, so
// two concurrent first submissions of the same key can never both win.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Reserve inserts a PENDING record for the key. Returns domain.ErrDuplicateKey
// when the key already exists (completed, in flight, or expired; the caller
// distinguishes via Get).
func (r *IdempotencyRepo) Reserve(ctx context.Context, key string, ttl time.Duration) error {
	now := time.Now().UTC()
	query := `INSERT INTO idempotency_records (key, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, key, string(domain.IdempotencyStatusPending), now, now.Add(ttl))
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("reserve idempotency key: %w", err)
	}
	return nil
}

// Complete captures the guarded operation's result. The record is read-only
// afterward.
func (r *IdempotencyRepo) Complete(ctx context.Context, key string, statusCode int, body []byte) error {
	query := `UPDATE idempotency_records
		SET status = $1, result_status = $2, result_body = $3
		WHERE key = $4 AND status = $5`

	tag, err := r.pool.Exec(ctx, query,
		string(domain.IdempotencyStatusCompleted), statusCode, body,
		key, string(domain.IdempotencyStatusPending),
	)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete idempotency key %q: no pending reservation", key)
	}
	return nil
}

// Release frees a reservation whose handler did not produce a committable
// result, so a client retry gets a fresh attempt.
func (r *IdempotencyRepo) Release(ctx context.Context, key string) error {
	query := `DELETE FROM idempotency_records WHERE key = $1 AND status = $2`

	_, err := r.pool.Exec(ctx, query, key, string(domain.IdempotencyStatusPending))
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Get fetches a record by key. Returns nil, nil when the key is unknown.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT key, status, COALESCE(result_status, 0), result_body, created_at, expires_at
		FROM idempotency_records WHERE key = $1`

	rec := &domain.IdempotencyRecord{}
	var status string
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&rec.Key, &status, &rec.ResultStatus, &rec.ResultBody, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	rec.Status = domain.IdempotencyStatus(status)
	return rec, nil
}

// DeleteExpired removes records whose expiry has passed. Run by the sweep
// worker; deletes nothing that is still live.
func (r *IdempotencyRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM idempotency_records WHERE expires_at < $1`

	tag, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency records: %w", err)
	}
	return tag.RowsAffected(), nil
}
