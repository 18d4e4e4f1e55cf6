package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentpay-gateway/config"
	redisstore "rentpay-gateway/internal/adapter/storage/redis"
	"rentpay-gateway/internal/core/ports/mocks"
	"rentpay-gateway/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func routerTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Idempotency: config.IdempotencyConfig{
			TTL:           24 * time.Hour,
			SweepInterval: time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:         true,
			GeneralLimit:    100,
			GeneralWindow:   time.Minute,
			SensitiveLimit:  10,
			SensitiveWindow: time.Minute,
			SensitivePaths:  []string{"/api/v1/invoices/:id/mark-paid"},
		},
		Reconciler: config.ReconcilerConfig{MaxRetries: 5},
		JWT: config.JWTConfig{
			Secret: "router-test-secret",
			Expiry: time.Hour,
			Issuer: "rentpay-gateway",
		},
	}
}

func newTestRouter(t *testing.T) (*RouterDeps, *gin.Engine) {
	t.Helper()
	ctrl := gomock.NewController(t)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	deps := &RouterDeps{
		Config:           routerTestConfig(),
		Log:              zerolog.Nop(),
		Processor:        mocks.NewMockWebhookProcessor(ctrl),
		Invoices:         mocks.NewMockInvoiceService(ctrl),
		Failures:         mocks.NewMockWebhookFailureRepository(ctrl),
		Tokens:           service.NewJWTTokenService(routerTestConfig().JWT),
		IdempotencyRepo:  mocks.NewMockIdempotencyRepository(ctrl),
		IdempotencyCache: mocks.NewMockIdempotencyCache(ctrl),
		RateLimits:       redisstore.NewRateLimitStore(client),
	}
	return deps, SetupRouter(*deps)
}

func TestRouter_HealthRoute(t *testing.T) {
	_, r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	_, r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhook-failures", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
}

func TestRouter_AdminAcceptsValidToken(t *testing.T) {
	deps, r := newTestRouter(t)

	deps.Failures.(*mocks.MockWebhookFailureRepository).EXPECT().
		ListRetryable(gomock.Any(), 5, 50).Return(nil, nil)

	token, _, err := deps.Tokens.Generate("ops@example.com")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhook-failures", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UnknownRoute404(t *testing.T) {
	_, r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RateLimitHeadersPresent(t *testing.T) {
	_, r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
}
