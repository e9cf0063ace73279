package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/matchfyn/matchfyn-api/internal/config"
	"github.com/matchfyn/matchfyn-api/internal/observability"
)

// LifecycleWorker drives the room sweep on a fixed interval. Each step
// failure is logged and counted but never stops the remaining steps; a panic
// during a sweep backs the worker off before the next attempt.
type LifecycleWorker struct {
	lifecycle RoomLifecycleService
	cfg       config.Config
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewLifecycleWorker constructs the sweep worker.
func NewLifecycleWorker(lifecycle RoomLifecycleService, cfg config.Config, metrics *observability.Metrics, logger zerolog.Logger) *LifecycleWorker {
	return &LifecycleWorker{
		lifecycle: lifecycle,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.With().Str("component", "lifecycle_worker").Logger(),
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (w *LifecycleWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.cfg.SweepInterval).Msg("lifecycle worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("lifecycle worker stopped")
			return
		case <-ticker.C:
			if ok := w.sweep(ctx); !ok {
				select {
				case <-ctx.Done():
					w.logger.Info().Msg("lifecycle worker stopped")
					return
				case <-time.After(w.cfg.SweepErrorBackoff):
				}
			}
		}
	}
}

type sweepStep struct {
	name string
	run  func(context.Context) (int, error)
}

// sweep runs the full step chain once. It returns false only when the sweep
// panicked, which triggers the error backoff.
func (w *LifecycleWorker) sweep(ctx context.Context) (ok bool) {
	started := w.now()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Interface("panic", r).Msg("lifecycle sweep panicked")
			if w.metrics != nil {
				w.metrics.SweepStepFailed("panic")
			}
			ok = false
		}
	}()

	steps := []sweepStep{
		{"expire_rooms", w.lifecycle.ExpireRooms},
		{"evict_idle", w.lifecycle.EvictIdleParticipants},
		{"ensure_waiting", w.lifecycle.EnsureWaitingRooms},
		{"promote_full_waiting", w.lifecycle.PromoteFullWaitingRooms},
		{"ensure_matching", w.lifecycle.EnsureMatchingRooms},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			return true
		}

		affected, err := step.run(ctx)
		if err != nil {
			w.logger.Error().Err(err).Str("step", step.name).Msg("lifecycle step failed")
			if w.metrics != nil {
				w.metrics.SweepStepFailed(step.name)
			}
			continue
		}
		if affected > 0 {
			w.logger.Debug().Str("step", step.name).Int("affected", affected).Msg("lifecycle step done")
		}
	}

	// Health runs every fifth minute rather than every tick; the stats query
	// is heavier than the rest of the sweep.
	if started.Minute()%5 == 0 {
		if err := w.lifecycle.CheckRoomHealth(ctx); err != nil {
			w.logger.Error().Err(err).Str("step", "check_health").Msg("lifecycle step failed")
			if w.metrics != nil {
				w.metrics.SweepStepFailed("check_health")
			}
		}
	}

	if w.metrics != nil {
		w.metrics.SweepCompleted(w.now().Sub(started))
	}

	return true
}
