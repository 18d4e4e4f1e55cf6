package postgres

import (
	"context"
	"fmt"
	"time"

	"rentpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookFailureRepo implements ports.WebhookFailureRepository.
type WebhookFailureRepo struct {
	pool Pool
}

// NewWebhookFailureRepo creates a new WebhookFailureRepo.
func NewWebhookFailureRepo(pool Pool) *WebhookFailureRepo {
	return &WebhookFailureRepo{pool: pool}
}

// Create persists a failed webhook delivery for later reconciliation.
func (r *WebhookFailureRepo) Create(ctx context.Context, f *domain.WebhookFailure) error {
	query := `INSERT INTO webhook_failures
		(id, provider, payload, error, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		f.ID, f.Provider, f.Payload, f.Error, f.RetryCount, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook failure: %w", err)
	}
	return nil
}

// ListRetryable returns oldest-first failures still inside the retry budget,
// capped at limit so a single reconciliation run stays bounded.
func (r *WebhookFailureRepo) ListRetryable(ctx context.Context, maxRetries int, limit int) ([]domain.WebhookFailure, error) {
	query := `SELECT id, provider, payload, error, retry_count, created_at, updated_at
		FROM webhook_failures
		WHERE retry_count < $1
		ORDER BY created_at ASC
		LIMIT $2`

	return r.list(ctx, query, maxRetries, limit)
}

// ListExhausted returns failures past the retry budget. These wait for manual
// reconciliation; nothing in the system deletes them automatically.
func (r *WebhookFailureRepo) ListExhausted(ctx context.Context, maxRetries int, limit int) ([]domain.WebhookFailure, error) {
	query := `SELECT id, provider, payload, error, retry_count, created_at, updated_at
		FROM webhook_failures
		WHERE retry_count >= $1
		ORDER BY created_at ASC
		LIMIT $2`

	return r.list(ctx, query, maxRetries, limit)
}

func (r *WebhookFailureRepo) list(ctx context.Context, query string, args ...any) ([]domain.WebhookFailure, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list webhook failures: %w", err)
	}
	defer rows.Close()

	var failures []domain.WebhookFailure
	for rows.Next() {
		var f domain.WebhookFailure
		if err := rows.Scan(
			&f.ID, &f.Provider, &f.Payload, &f.Error, &f.RetryCount, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// IncrementRetry bumps retry_count after a failed replay. The counter only
// ever increases.
func (r *WebhookFailureRepo) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE webhook_failures
		SET retry_count = retry_count + 1, updated_at = $1
		WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("increment webhook failure retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("increment webhook failure retry %s: %w", id, pgx.ErrNoRows)
	}
	return nil
}

// Delete removes a failure after a successful replay.
func (r *WebhookFailureRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM webhook_failures WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete webhook failure: %w", err)
	}
	return nil
}
