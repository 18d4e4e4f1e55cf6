package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus represents the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// Invoice is a billable amount owed by a tenant. A webhook-confirmed payment
// transitions it to PAID together with the payment record creation; the two
// writes share one database transaction.
type Invoice struct {
	ID        uuid.UUID     `json:"id"`
	TenantID  string        `json:"tenant_id"`
	Amount    int64         `json:"amount"` // Smallest currency unit (VND)
	Status    InvoiceStatus `json:"status"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
	DueAt     time.Time     `json:"due_at"`
	CreatedAt time.Time     `json:"created_at"`
}

// IsPaid returns true once the invoice has been settled.
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}
