package postgres

import (
	"context"
	"errors"
	"fmt"

	"rentpay-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a payment within a database transaction. The unique index on
// transaction_id turns a concurrent redelivery into a unique violation instead
// of a second payment row.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	query := `INSERT INTO payments
		(id, transaction_id, invoice_id, tenant_id, amount, method, status, bank_code, description, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.TransactionID, p.InvoiceID, p.TenantID, p.Amount,
		string(p.Method), string(p.Status), p.BankCode, p.Description,
		p.PaidAt, p.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrDuplicatePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByTransactionID fetches a payment by the provider transaction reference.
// Returns nil, nil when no payment exists.
func (r *PaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	query := `SELECT id, transaction_id, invoice_id, tenant_id, amount, method, status,
		bank_code, description, paid_at, created_at
		FROM payments WHERE transaction_id = $1`

	p := &domain.Payment{}
	var method, status string
	err := r.pool.QueryRow(ctx, query, transactionID).Scan(
		&p.ID, &p.TransactionID, &p.InvoiceID, &p.TenantID, &p.Amount,
		&method, &status, &p.BankCode, &p.Description, &p.PaidAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by transaction id: %w", err)
	}
	p.Method = domain.PaymentMethod(method)
	p.Status = domain.PaymentStatus(status)
	return p, nil
}
