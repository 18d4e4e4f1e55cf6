package middleware

import (
	"context"
	"strconv"
	"time"

	"rentpay-gateway/config"
	redisstore "rentpay-gateway/internal/adapter/storage/redis"
	"rentpay-gateway/pkg/apperror"
	"rentpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitStore counts a request against a fixed window for a key.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisstore.RateLimitResult, error)
}

// RateLimit enforces two admission tiers keyed by client IP. The general tier
// applies to every request; routes listed in SensitivePaths additionally pass
// through a stricter counter, so a sensitive request consumes a slot in both.
// Store outages degrade open: availability of the payment path wins over
// admission accuracy, and the rejection is never worth a dropped bank webhook.
func RateLimit(cfg config.RateLimitConfig, log zerolog.Logger, store RateLimitStore) gin.HandlerFunc {
	sensitive := make(map[string]struct{}, len(cfg.SensitivePaths))
	for _, p := range cfg.SensitivePaths {
		sensitive[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		identity := c.ClientIP()
		ctx := c.Request.Context()

		res, err := store.Allow(ctx, "general:"+identity, cfg.GeneralLimit, cfg.GeneralWindow)
		if err != nil {
			log.Error().Err(err).Msg("rate limit store unavailable, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))

		if !res.Allowed {
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		if _, ok := sensitive[c.FullPath()]; ok {
			sres, err := store.Allow(ctx, "sensitive:"+identity, cfg.SensitiveLimit, cfg.SensitiveWindow)
			if err != nil {
				log.Error().Err(err).Msg("rate limit store unavailable, allowing request")
				c.Next()
				return
			}
			if !sres.Allowed {
				c.Header("X-RateLimit-Remaining", "0")
				c.Header("X-RateLimit-Reset", strconv.FormatInt(sres.ResetAt, 10))
				response.Error(c, apperror.ErrSensitiveRateLimitExceeded())
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
