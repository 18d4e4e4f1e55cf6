package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicatePayment is returned when inserting a payment whose transaction
// reference already exists. A redelivered webhook that loses the insert race
// maps to this error and is reported as already processed.
var ErrDuplicatePayment = errors.New("payment with this transaction id already exists")

// PaymentMethod represents how a payment reached us.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodManual       PaymentMethod = "MANUAL"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is an externally-sourced payment record. TransactionID is the
// provider's transaction reference and is unique: it doubles as the
// deduplication key for webhook redelivery.
type Payment struct {
	ID            uuid.UUID     `json:"id"`
	TransactionID string        `json:"transaction_id"`
	InvoiceID     uuid.UUID     `json:"invoice_id"`
	TenantID      string        `json:"tenant_id,omitempty"`
	Amount        int64         `json:"amount"` // In smallest currency unit (VND), exact, never float
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	BankCode      *string       `json:"bank_code,omitempty"`
	Description   *string       `json:"description,omitempty"`
	PaidAt        time.Time     `json:"paid_at"`
	CreatedAt     time.Time     `json:"created_at"`
}
