package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rentpay-gateway/internal/core/domain"
	"rentpay-gateway/internal/core/ports"
	"rentpay-gateway/internal/core/ports/mocks"
	"rentpay-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func newInvoiceRouter(t *testing.T) (*gin.Engine, *mocks.MockInvoiceService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	invoices := mocks.NewMockInvoiceService(ctrl)

	r := gin.New()
	h := NewInvoiceHandler(zerolog.Nop(), invoices)
	r.GET("/api/v1/invoices/:id", h.GetByID)
	r.POST("/api/v1/invoices/:id/mark-paid", h.MarkPaid)
	return r, invoices
}

func TestInvoiceHandler_GetByID(t *testing.T) {
	r, invoices := newInvoiceRouter(t)
	id := uuid.New()

	invoices.EXPECT().GetInvoice(gomock.Any(), id).Return(&domain.Invoice{
		ID:       id,
		TenantID: "tenant-1",
		Amount:   750000,
		Status:   domain.InvoiceStatusPending,
		DueAt:    time.Now().Add(24 * time.Hour),
	}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
	assert.Contains(t, w.Body.String(), "request_id")
}

func TestInvoiceHandler_GetByID_BadID(t *testing.T) {
	r, _ := newInvoiceRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SYS_002")
}

func TestInvoiceHandler_GetByID_NotFound(t *testing.T) {
	r, invoices := newInvoiceRouter(t)
	id := uuid.New()

	invoices.EXPECT().GetInvoice(gomock.Any(), id).Return(nil, apperror.ErrNotFound("Invoice"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+id.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "PAY_001")
}

func TestInvoiceHandler_MarkPaid(t *testing.T) {
	r, invoices := newInvoiceRouter(t)
	id := uuid.New()

	invoices.EXPECT().MarkPaidManually(gomock.Any(), id, ports.ManualPaymentInput{
		TransactionID: "tx-manual-1",
		Amount:        750000,
	}).Return(&domain.Payment{
		ID:            uuid.New(),
		TransactionID: "tx-manual-1",
		InvoiceID:     id,
		Amount:        750000,
		Method:        domain.PaymentMethodManual,
		Status:        domain.PaymentStatusCompleted,
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/"+id.String()+"/mark-paid",
		strings.NewReader(`{"transaction_id":"tx-manual-1","amount":750000}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tx-manual-1")
}

func TestInvoiceHandler_MarkPaid_AlreadyPaid(t *testing.T) {
	r, invoices := newInvoiceRouter(t)
	id := uuid.New()

	invoices.EXPECT().MarkPaidManually(gomock.Any(), id, gomock.Any()).
		Return(nil, apperror.ErrInvoiceAlreadyPaid())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/"+id.String()+"/mark-paid",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "PAY_002")
}

func TestInvoiceHandler_MarkPaid_MalformedBody(t *testing.T) {
	r, _ := newInvoiceRouter(t)
	id := uuid.New()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/"+id.String()+"/mark-paid",
		strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
