package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentpay-gateway/config"
	redisstore "rentpay-gateway/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func rateLimitTestConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:         true,
		GeneralLimit:    5,
		GeneralWindow:   time.Minute,
		SensitiveLimit:  2,
		SensitiveWindow: time.Minute,
		SensitivePaths:  []string{"/api/v1/invoices/:id/mark-paid"},
	}
}

func newRateLimitRouter(t *testing.T, cfg config.RateLimitConfig) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	r := gin.New()
	r.Use(RateLimit(cfg, zerolog.Nop(), redisstore.NewRateLimitStore(client)))
	handler := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.GET("/api/v1/invoices/:id", handler)
	r.POST("/api/v1/invoices/:id/mark-paid", handler)
	return r, mr
}

func doRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_AllowsWithinGeneralLimit(t *testing.T) {
	r, _ := newRateLimitRouter(t, rateLimitTestConfig())

	for i := 0; i < 5; i++ {
		w := doRequest(r, http.MethodGet, "/api/v1/invoices/abc")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_BlocksOverGeneralLimit(t *testing.T) {
	r, _ := newRateLimitRouter(t, rateLimitTestConfig())

	for i := 0; i < 5; i++ {
		doRequest(r, http.MethodGet, "/api/v1/invoices/abc")
	}

	w := doRequest(r, http.MethodGet, "/api/v1/invoices/abc")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_001")
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_SensitiveTierBlocksFirst(t *testing.T) {
	r, _ := newRateLimitRouter(t, rateLimitTestConfig())

	// Sensitive limit is 2; general limit of 5 still has room when the
	// stricter tier trips.
	for i := 0; i < 2; i++ {
		w := doRequest(r, http.MethodPost, "/api/v1/invoices/abc/mark-paid")
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(r, http.MethodPost, "/api/v1/invoices/abc/mark-paid")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_002")
}

func TestRateLimit_SensitiveTierDoesNotAffectGeneralRoutes(t *testing.T) {
	r, _ := newRateLimitRouter(t, rateLimitTestConfig())

	for i := 0; i < 2; i++ {
		doRequest(r, http.MethodPost, "/api/v1/invoices/abc/mark-paid")
	}

	// The non-sensitive route only answers to the general tier.
	w := doRequest(r, http.MethodGet, "/api/v1/invoices/abc")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_DisabledPassesEverything(t *testing.T) {
	cfg := rateLimitTestConfig()
	cfg.Enabled = false
	r, _ := newRateLimitRouter(t, cfg)

	for i := 0; i < 20; i++ {
		w := doRequest(r, http.MethodGet, "/api/v1/invoices/abc")
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimit_DegradesOpenOnStoreOutage(t *testing.T) {
	r, mr := newRateLimitRouter(t, rateLimitTestConfig())
	mr.Close()

	w := doRequest(r, http.MethodGet, "/api/v1/invoices/abc")
	assert.Equal(t, http.StatusOK, w.Code)
}
