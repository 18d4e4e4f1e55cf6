package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentpay-gateway/internal/core/domain"
	"rentpay-gateway/internal/core/ports"
	"rentpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InvoiceService implements ports.InvoiceService. Manual settlement reuses the
// webhook path's atomicity contract: the payment row and the invoice status
// flip commit together or not at all.
type InvoiceService struct {
	invoices   ports.InvoiceRepository
	payments   ports.PaymentRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(
	log zerolog.Logger,
	invoices ports.InvoiceRepository,
	payments ports.PaymentRepository,
	transactor ports.DBTransactor,
) *InvoiceService {
	return &InvoiceService{
		invoices:   invoices,
		payments:   payments,
		transactor: transactor,
		log:        log.With().Str("component", "invoice_service").Logger(),
	}
}

// GetInvoice fetches an invoice by id.
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("Invoice")
	}
	return invoice, nil
}

// MarkPaidManually records an operator-entered payment and settles the
// invoice. An omitted amount defaults to the invoice total; an omitted
// transaction reference gets a generated one so the dedup constraint still
// applies to accidental double entry.
func (s *InvoiceService) MarkPaidManually(ctx context.Context, id uuid.UUID, input ports.ManualPaymentInput) (*domain.Payment, error) {
	invoice, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("Invoice")
	}
	if invoice.IsPaid() {
		return nil, apperror.ErrInvoiceAlreadyPaid()
	}

	amount := input.Amount
	if amount == 0 {
		amount = invoice.Amount
	}
	if amount < 0 {
		return nil, apperror.Validation("amount must be positive")
	}

	transactionID := input.TransactionID
	if transactionID == "" {
		transactionID = fmt.Sprintf("manual-%s", uuid.New())
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:            uuid.New(),
		TransactionID: transactionID,
		InvoiceID:     invoice.ID,
		TenantID:      invoice.TenantID,
		Amount:        amount,
		Method:        domain.PaymentMethodManual,
		Status:        domain.PaymentStatusCompleted,
		Description:   input.Description,
		PaidAt:        now,
		CreatedAt:     now,
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer tx.Rollback(ctx)

	if err := s.payments.Create(ctx, tx, payment); err != nil {
		if errors.Is(err, domain.ErrDuplicatePayment) {
			return nil, apperror.Validation("transaction reference already recorded")
		}
		return nil, apperror.InternalError(err)
	}
	if err := s.invoices.MarkPaid(ctx, tx, invoice.ID, now); err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("invoice_id", invoice.ID.String()).
		Str("transaction_id", transactionID).
		Int64("amount", amount).
		Msg("invoice manually settled")

	return payment, nil
}
