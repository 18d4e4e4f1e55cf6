package handler

import (
	"io"
	"net/http"

	"rentpay-gateway/internal/core/ports"
	"rentpay-gateway/pkg/apperror"
	"rentpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderSignature carries the provider's HMAC over the raw body.
const HeaderSignature = "X-Signature"

// WebhookHandler receives bank payment notifications.
type WebhookHandler struct {
	processor ports.WebhookProcessor
	log       zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(log zerolog.Logger, processor ports.WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		log:       log.With().Str("handler", "webhook").Logger(),
	}
}

// HandleSePay handles POST /api/v1/webhooks/sepay. The body is passed to the
// processor as raw bytes: the signature covers the exact bytes on the wire,
// and a re-serialized payload would not verify. Responses use the provider's
// bare contract rather than the API envelope.
func (h *WebhookHandler) HandleSePay(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("unable to read request body"))
		return
	}

	result, err := h.processor.HandleWebhook(c.Request.Context(), raw, c.GetHeader(HeaderSignature))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
