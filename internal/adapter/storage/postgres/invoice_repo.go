package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InvoiceRepo implements ports.InvoiceRepository.
type InvoiceRepo struct {
	pool Pool
}

// NewInvoiceRepo creates a new InvoiceRepo.
func NewInvoiceRepo(pool Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

// GetByID fetches an invoice. Returns nil, nil when not found.
func (r *InvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT id, tenant_id, amount, status, paid_at, due_at, created_at
		FROM invoices WHERE id = $1`

	inv := &domain.Invoice{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&inv.ID, &inv.TenantID, &inv.Amount, &status, &inv.PaidAt, &inv.DueAt, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.Status = domain.InvoiceStatus(status)
	return inv, nil
}

// MarkPaid transitions an invoice to PAID within the caller's transaction.
// The WHERE clause guards the transition: an already-paid invoice is not
// re-stamped, and a missing row surfaces as pgx.ErrNoRows.
func (r *InvoiceRepo) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) error {
	query := `UPDATE invoices SET status = $1, paid_at = $2
		WHERE id = $3 AND status <> $1`

	tag, err := tx.Exec(ctx, query, string(domain.InvoiceStatusPaid), paidAt, id)
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark invoice paid %s: %w", id, pgx.ErrNoRows)
	}
	return nil
}
