package ports

import (
	"context"
	"time"

	"rentpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepository defines persistence operations for externally-sourced
// payments. Create runs inside the webhook mutation transaction; the unique
// constraint on transaction_id is the dedup backstop for concurrent redelivery.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
}

// InvoiceRepository defines persistence operations for invoices.
// MarkPaid participates in the same transaction as the payment insert.
type InvoiceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) error
}

// IdempotencyRepository is the durable idempotency store shared by the webhook
// path and the generic request gate. Reserve must be atomic: it returns
// domain.ErrDuplicateKey when the key exists, closing the race between two
// concurrent first submissions.
type IdempotencyRepository interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) error
	Complete(ctx context.Context, key string, statusCode int, body []byte) error
	Release(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// WebhookFailureRepository stores failed webhook deliveries for the
// reconciliation job. ListRetryable returns oldest-first records with
// retry_count < maxRetries, up to limit. ListExhausted exposes the
// manual-reconciliation backlog; nothing ever deletes those automatically.
type WebhookFailureRepository interface {
	Create(ctx context.Context, failure *domain.WebhookFailure) error
	ListRetryable(ctx context.Context, maxRetries int, limit int) ([]domain.WebhookFailure, error)
	ListExhausted(ctx context.Context, maxRetries int, limit int) ([]domain.WebhookFailure, error)
	IncrementRetry(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
