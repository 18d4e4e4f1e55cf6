package worker

import (
	"context"
	"sync"
	"time"

	"rentpay-gateway/config"
	"rentpay-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// Reconciler periodically replays failed webhook deliveries. Each run drains
// one batch of retryable failures, oldest first. A replay that succeeds (or
// finds the transaction already recorded) deletes the failure record; one
// that fails again burns a retry. Records that exhaust the retry budget are
// left alone for manual reconciliation.
type Reconciler struct {
	failures  ports.WebhookFailureRepository
	processor ports.WebhookProcessor

	interval   time.Duration
	batchSize  int
	maxRetries int
	log        zerolog.Logger

	mu sync.Mutex // guards against overlapping runs
}

// NewReconciler creates a new Reconciler.
func NewReconciler(
	cfg config.ReconcilerConfig,
	log zerolog.Logger,
	failures ports.WebhookFailureRepository,
	processor ports.WebhookProcessor,
) *Reconciler {
	return &Reconciler{
		failures:   failures,
		processor:  processor,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		log:        log.With().Str("worker", "reconciler").Logger(),
	}
}

// Start runs the reconciliation loop until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	r.log.Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Int("max_retries", r.maxRetries).
		Msg("webhook failure reconciler started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("webhook failure reconciler stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce processes a single batch. If a previous run is still in progress
// the tick is skipped rather than queued.
func (r *Reconciler) RunOnce(ctx context.Context) {
	if !r.mu.TryLock() {
		r.log.Debug().Msg("previous reconciliation run still in progress, skipping")
		return
	}
	defer r.mu.Unlock()

	failures, err := r.failures.ListRetryable(ctx, r.maxRetries, r.batchSize)
	if err != nil {
		r.log.Error().Err(err).Msg("listing retryable webhook failures")
		return
	}
	if len(failures) == 0 {
		return
	}

	r.log.Info().Int("count", len(failures)).Msg("replaying failed webhooks")

	for _, failure := range failures {
		if ctx.Err() != nil {
			return
		}

		result, err := r.processor.Replay(ctx, failure.Payload)
		if err != nil {
			if incErr := r.failures.IncrementRetry(ctx, failure.ID); incErr != nil {
				r.log.Error().Err(incErr).Str("failure_id", failure.ID.String()).Msg("incrementing retry count")
				continue
			}
			r.log.Warn().
				Err(err).
				Str("failure_id", failure.ID.String()).
				Int("retry_count", failure.RetryCount+1).
				Msg("webhook replay failed")
			continue
		}

		if err := r.failures.Delete(ctx, failure.ID); err != nil {
			r.log.Error().Err(err).Str("failure_id", failure.ID.String()).Msg("deleting resolved webhook failure")
			continue
		}
		r.log.Info().
			Str("failure_id", failure.ID.String()).
			Str("status", string(result.Status)).
			Msg("webhook failure resolved")
	}
}
