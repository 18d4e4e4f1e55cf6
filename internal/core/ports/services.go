package ports

import (
	"context"
	"time"

	"rentpay-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// SignatureService handles HMAC-SHA256 signing and verification of webhook
// payloads. Verify never errors; an invalid signature is simply false and the
// caller decides rejection policy.
type SignatureService interface {
	Sign(secretKey string, payload []byte) string
	Verify(secretKey string, payload []byte, signature string) bool
}

// WebhookResultStatus is the terminal outcome reported to the provider.
type WebhookResultStatus string

const (
	WebhookResultSuccess          WebhookResultStatus = "success"
	WebhookResultAlreadyProcessed WebhookResultStatus = "already_processed"
)

// WebhookResult is the response body for the provider webhook endpoint.
type WebhookResult struct {
	Status  WebhookResultStatus `json:"status"`
	Message string              `json:"message,omitempty"`
}

// WebhookProcessor ingests bank payment webhooks.
//
// HandleWebhook verifies the external signature before anything else.
// Replay runs the same pipeline for already-trusted internal state and is
// reachable only from the reconciliation worker; there is no bypass value an
// external caller could supply.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, rawPayload []byte, signature string) (*WebhookResult, error)
	Replay(ctx context.Context, rawPayload []byte) (*WebhookResult, error)
}

// IdempotencyCache is the Redis fast path in front of the durable idempotency
// store. Best effort: errors degrade to the database lookup.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	Set(ctx context.Context, key string, record *domain.IdempotencyRecord, ttl time.Duration) error
}

// ManualPaymentInput describes an operator-recorded settlement.
type ManualPaymentInput struct {
	TransactionID string
	Amount        int64
	Description   *string
}

// InvoiceService serves invoice reads and operator-initiated settlement.
// MarkPaidManually shares the atomic payment+invoice write with the webhook
// path; the HTTP surface additionally runs it behind the idempotency gate.
type InvoiceService interface {
	GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	MarkPaidManually(ctx context.Context, id uuid.UUID, input ManualPaymentInput) (*domain.Payment, error)
}

// TokenService validates bearer tokens for the operator endpoints. Tokens are
// issued out of band with the shared secret; the gateway only verifies them.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed operator token claims.
type TokenClaims struct {
	Subject string
}
