package handler

import (
	"rentpay-gateway/internal/core/ports"
	"rentpay-gateway/pkg/apperror"
	"rentpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// InvoiceHandler serves invoice reads and the manual mark-paid endpoint.
type InvoiceHandler struct {
	invoices ports.InvoiceService
	log      zerolog.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(log zerolog.Logger, invoices ports.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoices: invoices,
		log:      log.With().Str("handler", "invoice").Logger(),
	}
}

// GetByID handles GET /api/v1/invoices/:id.
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid invoice id"))
		return
	}

	invoice, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, invoice)
}

type markPaidRequest struct {
	TransactionID string  `json:"transaction_id"`
	Amount        int64   `json:"amount"`
	Description   *string `json:"description"`
}

// MarkPaid handles POST /api/v1/invoices/:id/mark-paid. The route runs behind
// the idempotency gate, so an operator retrying a timed-out submission gets
// the stored response instead of a second settlement.
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid invoice id"))
		return
	}

	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("invalid request body"))
		return
	}

	payment, err := h.invoices.MarkPaidManually(c.Request.Context(), id, ports.ManualPaymentInput{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Description:   req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, payment)
}
