package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentpay-gateway/config"
	"rentpay-gateway/internal/core/domain"
	"rentpay-gateway/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type gateFixture struct {
	router *gin.Engine
	repo   *mocks.MockIdempotencyRepository
	cache  *mocks.MockIdempotencyCache
	hits   *int
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)

	f := &gateFixture{
		repo:  mocks.NewMockIdempotencyRepository(ctrl),
		cache: mocks.NewMockIdempotencyCache(ctrl),
		hits:  new(int),
	}

	cfg := config.IdempotencyConfig{TTL: 24 * time.Hour, SweepInterval: time.Minute}
	r := gin.New()
	r.POST("/mutate", IdempotencyGate(cfg, zerolog.Nop(), f.repo, f.cache), func(c *gin.Context) {
		*f.hits++
		c.JSON(http.StatusOK, gin.H{"result": "done"})
	})
	r.POST("/fail", IdempotencyGate(cfg, zerolog.Nop(), f.repo, f.cache), func(c *gin.Context) {
		*f.hits++
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream"})
	})
	f.router = r
	return f
}

func (f *gateFixture) do(path, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	f.router.ServeHTTP(w, req)
	return w
}

func TestIdempotencyGate_NoHeaderPassesThrough(t *testing.T) {
	f := newGateFixture(t)

	w := f.do("/mutate", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *f.hits)
}

func TestIdempotencyGate_FirstRequestReservesAndCompletes(t *testing.T) {
	f := newGateFixture(t)

	f.cache.EXPECT().Get(gomock.Any(), "key-1").Return(nil, nil)
	f.repo.EXPECT().Reserve(gomock.Any(), "key-1", 24*time.Hour).Return(nil)
	f.repo.EXPECT().Complete(gomock.Any(), "key-1", http.StatusOK, gomock.Any()).
		DoAndReturn(func(_ interface{}, _ string, _ int, body []byte) error {
			assert.Contains(t, string(body), `"result":"done"`)
			return nil
		})
	f.cache.EXPECT().Set(gomock.Any(), "key-1", gomock.Any(), 24*time.Hour).Return(nil)

	w := f.do("/mutate", "key-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *f.hits)
}

func TestIdempotencyGate_InFlightDuplicateConflicts(t *testing.T) {
	f := newGateFixture(t)

	f.cache.EXPECT().Get(gomock.Any(), "key-1").Return(nil, nil)
	f.repo.EXPECT().Reserve(gomock.Any(), "key-1", gomock.Any()).Return(domain.ErrDuplicateKey)
	f.repo.EXPECT().Get(gomock.Any(), "key-1").Return(&domain.IdempotencyRecord{
		Key:       "key-1",
		Status:    domain.IdempotencyStatusPending,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	w := f.do("/mutate", "key-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "IDEM_001")
	assert.Equal(t, 0, *f.hits)
}

func TestIdempotencyGate_CompletedDuplicateReplays(t *testing.T) {
	f := newGateFixture(t)
	stored := &domain.IdempotencyRecord{
		Key:          "key-1",
		Status:       domain.IdempotencyStatusCompleted,
		ResultStatus: http.StatusOK,
		ResultBody:   []byte(`{"result":"done"}`),
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	f.cache.EXPECT().Get(gomock.Any(), "key-1").Return(nil, nil)
	f.repo.EXPECT().Reserve(gomock.Any(), "key-1", gomock.Any()).Return(domain.ErrDuplicateKey)
	f.repo.EXPECT().Get(gomock.Any(), "key-1").Return(stored, nil)
	f.cache.EXPECT().Set(gomock.Any(), "key-1", stored, gomock.Any()).Return(nil)

	w := f.do("/mutate", "key-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":"done"}`, w.Body.String())
	assert.Equal(t, "true", w.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, 0, *f.hits)
}

func TestIdempotencyGate_CachedCompletedSkipsDatabase(t *testing.T) {
	f := newGateFixture(t)
	stored := &domain.IdempotencyRecord{
		Key:          "key-1",
		Status:       domain.IdempotencyStatusCompleted,
		ResultStatus: http.StatusOK,
		ResultBody:   []byte(`{"result":"done"}`),
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	f.cache.EXPECT().Get(gomock.Any(), "key-1").Return(stored, nil)

	w := f.do("/mutate", "key-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, 0, *f.hits)
}

func TestIdempotencyGate_ExpiredKeyRejected(t *testing.T) {
	f := newGateFixture(t)

	f.cache.EXPECT().Get(gomock.Any(), "key-1").Return(nil, nil)
	f.repo.EXPECT().Reserve(gomock.Any(), "key-1", gomock.Any()).Return(domain.ErrDuplicateKey)
	f.repo.EXPECT().Get(gomock.Any(), "key-1").Return(&domain.IdempotencyRecord{
		Key:          "key-1",
		Status:       domain.IdempotencyStatusCompleted,
		ResultStatus: http.StatusOK,
		ExpiresAt:    time.Now().Add(-time.Hour),
	}, nil)

	w := f.do("/mutate", "key-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "IDEM_002")
	assert.Equal(t, 0, *f.hits)
}

func TestIdempotencyGate_FailureReleasesKey(t *testing.T) {
	f := newGateFixture(t)

	f.cache.EXPECT().Get(gomock.Any(), "key-1").Return(nil, nil)
	f.repo.EXPECT().Reserve(gomock.Any(), "key-1", gomock.Any()).Return(nil)
	f.repo.EXPECT().Release(gomock.Any(), "key-1").Return(nil)

	w := f.do("/fail", "key-1")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 1, *f.hits)
}

func TestIdempotencyGate_StoreErrorFailsClosed(t *testing.T) {
	f := newGateFixture(t)

	f.cache.EXPECT().Get(gomock.Any(), "key-1").Return(nil, nil)
	f.repo.EXPECT().Reserve(gomock.Any(), "key-1", gomock.Any()).Return(errors.New("db down"))

	w := f.do("/mutate", "key-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, *f.hits)
}
