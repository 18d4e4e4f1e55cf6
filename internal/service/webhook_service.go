package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentpay-gateway/config"
	"rentpay-gateway/internal/core/domain"
	"rentpay-gateway/internal/core/ports"
	"rentpay-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebhookService implements ports.WebhookProcessor for SePay bank transfer
// notifications. The pipeline is: verify signature, dedup on the provider
// transaction id, then record the payment and mark the invoice paid in one
// database transaction. Any failure after the signature check lands in the
// failure log so the reconciliation job can replay it.
type WebhookService struct {
	signatures ports.SignatureService
	payments   ports.PaymentRepository
	invoices   ports.InvoiceRepository
	failures   ports.WebhookFailureRepository
	transactor ports.DBTransactor

	secret          string
	mutationTimeout time.Duration
	log             zerolog.Logger
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(
	cfg config.WebhookConfig,
	log zerolog.Logger,
	signatures ports.SignatureService,
	payments ports.PaymentRepository,
	invoices ports.InvoiceRepository,
	failures ports.WebhookFailureRepository,
	transactor ports.DBTransactor,
) *WebhookService {
	return &WebhookService{
		signatures:      signatures,
		payments:        payments,
		invoices:        invoices,
		failures:        failures,
		transactor:      transactor,
		secret:          cfg.Secret,
		mutationTimeout: cfg.MutationTimeout,
		log:             log.With().Str("component", "webhook_service").Logger(),
	}
}

// sePayWebhook is the provider's notification shape. Amount is decoded as
// json.Number so a fractional value is rejected instead of silently rounded.
type sePayWebhook struct {
	TransactionID string      `json:"transactionId"`
	InvoiceID     string      `json:"invoiceId"`
	TenantID      string      `json:"tenantId"`
	Amount        json.Number `json:"amount"`
	PaidAt        string      `json:"paidAt"`
	BankCode      *string     `json:"bankCode"`
	Description   *string     `json:"description"`
}

// HandleWebhook verifies the provider signature, then processes the payload.
// A signature mismatch returns 401 without touching state or the failure log:
// an unauthenticated payload is not a retry candidate. Every error past the
// signature check is recorded for reconciliation before being returned.
func (s *WebhookService) HandleWebhook(ctx context.Context, rawPayload []byte, signature string) (*ports.WebhookResult, error) {
	if !s.signatures.Verify(s.secret, rawPayload, signature) {
		s.log.Warn().Msg("webhook rejected: signature mismatch")
		return nil, apperror.ErrInvalidSignature()
	}

	result, err := s.process(ctx, rawPayload)
	if err != nil {
		s.recordFailure(ctx, rawPayload, err)
		return nil, err
	}
	return result, nil
}

// Replay runs the processing pipeline for a payload that already passed
// signature verification when it first arrived. Only the reconciliation
// worker calls this; the HTTP surface never exposes it.
func (s *WebhookService) Replay(ctx context.Context, rawPayload []byte) (*ports.WebhookResult, error) {
	return s.process(ctx, rawPayload)
}

func (s *WebhookService) process(ctx context.Context, rawPayload []byte) (*ports.WebhookResult, error) {
	payment, err := parseSePayPayload(rawPayload)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	// Fast-path dedup. The unique constraint below still backstops the race
	// between two concurrent deliveries that both pass this check.
	existing, err := s.payments.GetByTransactionID(ctx, payment.TransactionID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if existing != nil {
		s.log.Info().Str("transaction_id", payment.TransactionID).Msg("duplicate webhook delivery ignored")
		return &ports.WebhookResult{
			Status:  ports.WebhookResultAlreadyProcessed,
			Message: "transaction already recorded",
		}, nil
	}

	mctx, cancel := context.WithTimeout(ctx, s.mutationTimeout)
	defer cancel()

	tx, err := s.transactor.Begin(mctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	defer tx.Rollback(mctx)

	if err := s.payments.Create(mctx, tx, payment); err != nil {
		if errors.Is(err, domain.ErrDuplicatePayment) {
			s.log.Info().Str("transaction_id", payment.TransactionID).Msg("lost insert race to concurrent delivery")
			return &ports.WebhookResult{
				Status:  ports.WebhookResultAlreadyProcessed,
				Message: "transaction already recorded",
			}, nil
		}
		return nil, apperror.InternalError(err)
	}

	if err := s.invoices.MarkPaid(mctx, tx, payment.InvoiceID, payment.PaidAt); err != nil {
		return nil, apperror.InternalError(err)
	}

	if err := tx.Commit(mctx); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.log.Info().
		Str("transaction_id", payment.TransactionID).
		Str("invoice_id", payment.InvoiceID.String()).
		Int64("amount", payment.Amount).
		Msg("webhook payment recorded")

	return &ports.WebhookResult{Status: ports.WebhookResultSuccess}, nil
}

// recordFailure persists a signature-valid payload whose processing failed.
// Best effort with a detached context: the original request may already be
// cancelled, and losing the failure record would lose the webhook.
func (s *WebhookService) recordFailure(ctx context.Context, rawPayload []byte, cause error) {
	now := time.Now().UTC()
	failure := &domain.WebhookFailure{
		ID:        uuid.New(),
		Provider:  domain.ProviderSePay,
		Payload:   rawPayload,
		Error:     cause.Error(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.failures.Create(context.WithoutCancel(ctx), failure); err != nil {
		s.log.Error().Err(err).Str("cause", cause.Error()).Msg("failed to record webhook failure")
		return
	}
	s.log.Warn().Err(cause).Str("failure_id", failure.ID.String()).Msg("webhook processing failed, recorded for retry")
}

func parseSePayPayload(raw []byte) (*domain.Payment, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var w sePayWebhook
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	if w.TransactionID == "" {
		return nil, errors.New("transactionId is required")
	}
	invoiceID, err := uuid.Parse(w.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("invalid invoiceId: %w", err)
	}
	amount, err := w.Amount.Int64()
	if err != nil {
		return nil, fmt.Errorf("amount must be an integer in minor units: %w", err)
	}
	if amount <= 0 {
		return nil, errors.New("amount must be positive")
	}

	now := time.Now().UTC()
	paidAt := now
	if w.PaidAt != "" {
		paidAt, err = time.Parse(time.RFC3339, w.PaidAt)
		if err != nil {
			return nil, fmt.Errorf("invalid paidAt: %w", err)
		}
	}

	return &domain.Payment{
		ID:            uuid.New(),
		TransactionID: w.TransactionID,
		InvoiceID:     invoiceID,
		TenantID:      w.TenantID,
		Amount:        amount,
		Method:        domain.PaymentMethodBankTransfer,
		Status:        domain.PaymentStatusCompleted,
		BankCode:      w.BankCode,
		Description:   w.Description,
		PaidAt:        paidAt,
		CreatedAt:     now,
	}, nil
}
