package handler

import (
	"strconv"

	"rentpay-gateway/internal/core/ports"
	"rentpay-gateway/pkg/apperror"
	"rentpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	defaultFailureListLimit = 50
	maxFailureListLimit     = 200
)

// AdminHandler exposes the webhook failure backlog to operators.
type AdminHandler struct {
	failures   ports.WebhookFailureRepository
	maxRetries int
	log        zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(log zerolog.Logger, failures ports.WebhookFailureRepository, maxRetries int) *AdminHandler {
	return &AdminHandler{
		failures:   failures,
		maxRetries: maxRetries,
		log:        log.With().Str("handler", "admin").Logger(),
	}
}

// ListWebhookFailures handles GET /api/v1/admin/webhook-failures.
// By default it returns failures still in the retry queue; exhausted=true
// switches to the manual-reconciliation backlog.
func (h *AdminHandler) ListWebhookFailures(c *gin.Context) {
	limit := defaultFailureListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, apperror.Validation("limit must be a positive integer"))
			return
		}
		if n > maxFailureListLimit {
			n = maxFailureListLimit
		}
		limit = n
	}

	list := h.failures.ListRetryable
	if c.Query("exhausted") == "true" {
		list = h.failures.ListExhausted
	}

	failures, err := list(c.Request.Context(), h.maxRetries, limit)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.OK(c, failures)
}
