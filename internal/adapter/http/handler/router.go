package handler

import (
	"rentpay-gateway/config"
	"rentpay-gateway/internal/adapter/http/middleware"
	"rentpay-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// webhook bodies are small; anything larger is not a bank notification
const maxBodyBytes = 1 << 20

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Config           *config.Config
	Log              zerolog.Logger
	Processor        ports.WebhookProcessor
	Invoices         ports.InvoiceService
	Failures         ports.WebhookFailureRepository
	Tokens           ports.TokenService
	IdempotencyRepo  ports.IdempotencyRepository
	IdempotencyCache ports.IdempotencyCache
	RateLimits       middleware.RateLimitStore
	Health           []ports.HealthChecker
}

// SetupRouter builds the gin engine with the full middleware chain and routes.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(deps.Config.Server.Mode)

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(deps.Log),
		middleware.Recovery(deps.Log),
		middleware.MaxBodySize(maxBodyBytes),
		middleware.RateLimit(deps.Config.RateLimit, deps.Log, deps.RateLimits),
	)

	healthHandler := NewHealthHandler(deps.Health...)
	webhookHandler := NewWebhookHandler(deps.Log, deps.Processor)
	invoiceHandler := NewInvoiceHandler(deps.Log, deps.Invoices)
	adminHandler := NewAdminHandler(deps.Log, deps.Failures, deps.Config.Reconciler.MaxRetries)

	r.GET("/health", healthHandler.Check)

	gate := middleware.IdempotencyGate(deps.Config.Idempotency, deps.Log, deps.IdempotencyRepo, deps.IdempotencyCache)

	v1 := r.Group("/api/v1")
	{
		// The webhook route has its own dedup (provider transaction id); the
		// idempotency gate guards client-originated mutations.
		v1.POST("/webhooks/sepay", webhookHandler.HandleSePay)

		v1.GET("/invoices/:id", invoiceHandler.GetByID)
		v1.POST("/invoices/:id/mark-paid", gate, invoiceHandler.MarkPaid)

		admin := v1.Group("/admin", middleware.JWTAuth(deps.Tokens))
		admin.GET("/webhook-failures", adminHandler.ListWebhookFailures)
	}

	return r
}
