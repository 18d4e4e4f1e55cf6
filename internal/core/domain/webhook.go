package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProviderSePay tags failures originating from the SePay bank webhook.
const ProviderSePay = "SEPAY"

// WebhookFailure records a signature-valid webhook whose domain mutation
// failed. The reconciliation job replays these until the retry budget is
// spent; records that exhaust the budget stay behind for manual
// reconciliation and are never deleted automatically.
type WebhookFailure struct {
	ID         uuid.UUID `json:"id"`
	Provider   string    `json:"provider"`
	Payload    []byte    `json:"payload"` // Original webhook body, replayed verbatim
	Error      string    `json:"error"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Exhausted reports whether the failure has used up its automatic retries.
func (f *WebhookFailure) Exhausted(maxRetries int) bool {
	return f.RetryCount >= maxRetries
}
