package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"rentpay-gateway/config"
	"rentpay-gateway/internal/core/domain"
	"rentpay-gateway/internal/core/ports"
	"rentpay-gateway/pkg/apperror"
	"rentpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderIdempotencyKey is the client-supplied key for the idempotency gate.
const HeaderIdempotencyKey = "Idempotency-Key"

// bodyWriter tees the response body so a successful result can be captured
// for replay.
type bodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyGate makes mutating endpoints safe to retry. The first request
// with a key reserves it, runs the handler, and captures a 2xx response for
// verbatim replay; a concurrent duplicate gets 409 while the first is still
// in flight; a later duplicate gets the stored response with an
// Idempotency-Replayed header; reuse past the TTL gets 422. Requests without
// the header pass through untouched.
//
// Failure responses release the key so the client can retry with the same
// one. Unlike the rate limiter this gate fails closed on store errors:
// without the reservation there is no duplicate protection, and running the
// mutation unguarded is the one thing the gate exists to prevent.
func IdempotencyGate(cfg config.IdempotencyConfig, log zerolog.Logger, repo ports.IdempotencyRepository, cache ports.IdempotencyCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		now := time.Now().UTC()

		// Cache fast path. Errors fall through to the durable store.
		if rec, err := cache.Get(ctx, key); err == nil && rec != nil {
			if rec.IsExpired(now) {
				response.Error(c, apperror.ErrIdempotencyKeyExpired())
				c.Abort()
				return
			}
			if rec.IsCompleted() {
				replay(c, rec)
				return
			}
		}

		if err := repo.Reserve(ctx, key, cfg.TTL); err != nil {
			if !errors.Is(err, domain.ErrDuplicateKey) {
				response.Error(c, apperror.InternalError(err))
				c.Abort()
				return
			}

			rec, err := repo.Get(ctx, key)
			if err != nil || rec == nil {
				response.Error(c, apperror.InternalError(err))
				c.Abort()
				return
			}
			switch {
			case rec.IsExpired(now):
				response.Error(c, apperror.ErrIdempotencyKeyExpired())
			case rec.IsCompleted():
				if err := cache.Set(ctx, key, rec, time.Until(rec.ExpiresAt)); err != nil {
					log.Warn().Err(err).Msg("caching idempotency record")
				}
				replay(c, rec)
				return
			default:
				response.Error(c, apperror.ErrIdempotencyInFlight())
			}
			c.Abort()
			return
		}

		bw := &bodyWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = bw

		c.Next()

		// The client already has the response; finishing the record must not
		// die with the request context.
		dctx := context.WithoutCancel(ctx)
		status := bw.Status()

		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			if err := repo.Complete(dctx, key, status, bw.body.Bytes()); err != nil {
				log.Error().Err(err).Str("idempotency_key", key).Msg("completing idempotency record")
				return
			}
			rec := &domain.IdempotencyRecord{
				Key:          key,
				Status:       domain.IdempotencyStatusCompleted,
				ResultStatus: status,
				ResultBody:   bw.body.Bytes(),
				CreatedAt:    now,
				ExpiresAt:    now.Add(cfg.TTL),
			}
			if err := cache.Set(dctx, key, rec, cfg.TTL); err != nil {
				log.Warn().Err(err).Msg("caching idempotency record")
			}
			return
		}

		if err := repo.Release(dctx, key); err != nil {
			log.Error().Err(err).Str("idempotency_key", key).Msg("releasing idempotency key after failure")
		}
	}
}

func replay(c *gin.Context, rec *domain.IdempotencyRecord) {
	c.Header("Idempotency-Replayed", "true")
	c.Data(rec.ResultStatus, "application/json", rec.ResultBody)
	c.Abort()
}
