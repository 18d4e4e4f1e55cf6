package worker

import (
	"context"
	"time"

	"rentpay-gateway/config"
	"rentpay-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// Sweeper deletes expired idempotency records on an interval. Expired keys
// are already rejected at read time; the sweep only reclaims storage.
type Sweeper struct {
	idempotency ports.IdempotencyRepository
	interval    time.Duration
	log         zerolog.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(cfg config.IdempotencyConfig, log zerolog.Logger, idempotency ports.IdempotencyRepository) *Sweeper {
	return &Sweeper{
		idempotency: idempotency,
		interval:    cfg.SweepInterval,
		log:         log.With().Str("worker", "idempotency_sweeper").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("idempotency sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("idempotency sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce deletes all records expired as of now.
func (s *Sweeper) RunOnce(ctx context.Context) {
	deleted, err := s.idempotency.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("sweeping expired idempotency records")
		return
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted", deleted).Msg("expired idempotency records swept")
	}
}
