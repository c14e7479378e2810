// File: internal/infra/sched/timeout_worker.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"interpretation-booking/internal/infra/logging"
	"interpretation-booking/internal/infra/metrics"
	"interpretation-booking/internal/usecase"
)

// TimeoutWorker periodically times out pending bookings whose offer window
// has closed, via the lifecycle use case.
type TimeoutWorker struct {
	interval time.Duration
	uc       *usecase.BookingUseCase
	log      *zerolog.Logger
}

func NewTimeoutWorker(interval time.Duration, uc *usecase.BookingUseCase, logger *zerolog.Logger) *TimeoutWorker {
	swLog := logger.With().Str("component", "TimeoutWorker").Logger()
	return &TimeoutWorker{
		interval: interval,
		uc:       uc,
		log:      &swLog,
	}
}

func (w *TimeoutWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting timeout worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping timeout worker")
			return ctx.Err()
		case <-ticker.C:
			done := logging.TraceDuration(w.log, "TimeoutWorker.sweep")
			n, err := w.uc.SweepExpired(ctx)
			done()
			if err != nil {
				w.log.Error().Err(err).Msg("timeout worker error")
			}
			if n > 0 {
				metrics.AddSweptBookings(n)
				w.log.Info().Int("count", n).Msg("expired bookings timed out")
			}
		}
	}
}
