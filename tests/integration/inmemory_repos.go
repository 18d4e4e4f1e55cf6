package integration

import (
	"context"
	"errors"
	"sync"
	"time"

	"rentpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory implementations of the storage ports. Each repo guards its map
// with a mutex so concurrency tests exercise real interleavings; the unique
// checks run under the lock, matching the atomicity the database constraints
// provide in production.

type nopTx struct{}

func (nopTx) Begin(ctx context.Context) (pgx.Tx, error) { return nopTx{}, nil }
func (nopTx) Commit(ctx context.Context) error          { return nil }
func (nopTx) Rollback(ctx context.Context) error        { return nil }
func (nopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (nopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (nopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (nopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (nopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (nopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (nopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (nopTx) Conn() *pgx.Conn                                               { return nil }

// NopTransactor satisfies ports.DBTransactor for repos that do not need real
// transactions.
type NopTransactor struct{}

func (NopTransactor) Begin(ctx context.Context) (pgx.Tx, error) { return nopTx{}, nil }

// InMemoryPaymentRepo implements ports.PaymentRepository.
type InMemoryPaymentRepo struct {
	mu       sync.Mutex
	byTxnID  map[string]*domain.Payment
	failWith error // when set, Create fails
}

func NewInMemoryPaymentRepo() *InMemoryPaymentRepo {
	return &InMemoryPaymentRepo{byTxnID: map[string]*domain.Payment{}}
}

func (r *InMemoryPaymentRepo) Create(ctx context.Context, _ pgx.Tx, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	if _, exists := r.byTxnID[p.TransactionID]; exists {
		return domain.ErrDuplicatePayment
	}
	cp := *p
	r.byTxnID[p.TransactionID] = &cp
	return nil
}

func (r *InMemoryPaymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byTxnID[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryPaymentRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byTxnID)
}

func (r *InMemoryPaymentRepo) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

// InMemoryInvoiceRepo implements ports.InvoiceRepository.
type InMemoryInvoiceRepo struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*domain.Invoice
	paidCount map[uuid.UUID]int
}

func NewInMemoryInvoiceRepo() *InMemoryInvoiceRepo {
	return &InMemoryInvoiceRepo{
		byID:      map[uuid.UUID]*domain.Invoice{},
		paidCount: map[uuid.UUID]int{},
	}
}

func (r *InMemoryInvoiceRepo) Put(invoice *domain.Invoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *invoice
	r.byID[invoice.ID] = &cp
}

func (r *InMemoryInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *InMemoryInvoiceRepo) MarkPaid(ctx context.Context, _ pgx.Tx, id uuid.UUID, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return errors.New("invoice not found")
	}
	if inv.Status == domain.InvoiceStatusPaid {
		return errors.New("invoice already paid")
	}
	inv.Status = domain.InvoiceStatusPaid
	inv.PaidAt = &paidAt
	r.paidCount[id]++
	return nil
}

// MarkPaidCount reports how many times the invoice was transitioned to PAID.
func (r *InMemoryInvoiceRepo) MarkPaidCount(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paidCount[id]
}

// InMemoryIdempotencyRepo implements ports.IdempotencyRepository.
type InMemoryIdempotencyRepo struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord
}

func NewInMemoryIdempotencyRepo() *InMemoryIdempotencyRepo {
	return &InMemoryIdempotencyRepo{records: map[string]*domain.IdempotencyRecord{}}
}

func (r *InMemoryIdempotencyRepo) Reserve(ctx context.Context, key string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[key]; exists {
		return domain.ErrDuplicateKey
	}
	now := time.Now().UTC()
	r.records[key] = &domain.IdempotencyRecord{
		Key:       key,
		Status:    domain.IdempotencyStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

func (r *InMemoryIdempotencyRepo) Complete(ctx context.Context, key string, statusCode int, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok || rec.Status != domain.IdempotencyStatusPending {
		return errors.New("no pending record for key")
	}
	rec.Status = domain.IdempotencyStatusCompleted
	rec.ResultStatus = statusCode
	rec.ResultBody = append([]byte(nil), body...)
	return nil
}

func (r *InMemoryIdempotencyRepo) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if ok && rec.Status == domain.IdempotencyStatusPending {
		delete(r.records, key)
	}
	return nil
}

func (r *InMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *InMemoryIdempotencyRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for key, rec := range r.records {
		if rec.ExpiresAt.Before(before) {
			delete(r.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// ExpireNow rewinds a record's expiry so TTL paths can be tested without
// sleeping.
func (r *InMemoryIdempotencyRepo) ExpireNow(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[key]; ok {
		rec.ExpiresAt = time.Now().UTC().Add(-time.Second)
	}
}

// InMemoryWebhookFailureRepo implements ports.WebhookFailureRepository.
type InMemoryWebhookFailureRepo struct {
	mu       sync.Mutex
	failures map[uuid.UUID]*domain.WebhookFailure
}

func NewInMemoryWebhookFailureRepo() *InMemoryWebhookFailureRepo {
	return &InMemoryWebhookFailureRepo{failures: map[uuid.UUID]*domain.WebhookFailure{}}
}

func (r *InMemoryWebhookFailureRepo) Create(ctx context.Context, f *domain.WebhookFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now().UTC()
	cp := *f
	r.failures[f.ID] = &cp
	return nil
}

func (r *InMemoryWebhookFailureRepo) ListRetryable(ctx context.Context, maxRetries int, limit int) ([]domain.WebhookFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WebhookFailure
	for _, f := range r.failures {
		if f.RetryCount < maxRetries && len(out) < limit {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *InMemoryWebhookFailureRepo) ListExhausted(ctx context.Context, maxRetries int, limit int) ([]domain.WebhookFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WebhookFailure
	for _, f := range r.failures {
		if f.RetryCount >= maxRetries && len(out) < limit {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *InMemoryWebhookFailureRepo) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.failures[id]
	if !ok {
		return errors.New("failure not found")
	}
	f.RetryCount++
	f.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryWebhookFailureRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, id)
	return nil
}

func (r *InMemoryWebhookFailureRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}
