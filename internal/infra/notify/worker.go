// File: internal/infra/notify/worker.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"interpretation-booking/internal/domain/ports/adapter"
	"interpretation-booking/internal/infra/metrics"
)

// maxDeliveryAttempts bounds gue retries before a notification is dropped.
// Delivery is best-effort: a dead provider must not grow the queue forever.
const maxDeliveryAttempts = 3

// Senders groups the per-channel delivery backends.
type Senders struct {
	Email EmailSender
	Push  PushSender
	SMS   SMSSender
}

// sendFunc delivers one decoded intent.
type sendFunc func(ctx context.Context, intent *adapter.NotificationIntent) error

// makeHandler wraps a channel sender into a gue work func: decode, drop after
// too many attempts, deliver, count.
func makeHandler(channel string, send sendFunc, logger *zerolog.Logger) gue.WorkFunc {
	return func(ctx context.Context, j *gue.Job) error {
		var intent adapter.NotificationIntent
		if err := json.Unmarshal(j.Args, &intent); err != nil {
			logger.Error().Err(err).Str("type", j.Type).Msg("could not unmarshal intent, dropping")
			return nil
		}
		if j.ErrorCount >= maxDeliveryAttempts {
			logger.Error().Str("intent_id", intent.ID).Str("last_error", j.LastError.String).
				Msg("notification failed too often, dropping")
			metrics.IncNotification(channel, false)
			return nil
		}
		if err := send(ctx, &intent); err != nil {
			metrics.IncNotification(channel, false)
			return fmt.Errorf("deliver %s: %w", channel, err)
		}
		metrics.IncNotification(channel, true)
		return nil
	}
}

// StartWorkers runs the notification worker pool until ctx is cancelled. The
// returned channel closes when the pool has drained.
func StartWorkers(ctx context.Context, pool *pgxpool.Pool, workers int, s *Senders, logger *zerolog.Logger) (chan struct{}, error) {
	gc, err := gue.NewClient(pgxv5.NewConnPool(pool))
	if err != nil {
		return nil, fmt.Errorf("can't init gue: %w", err)
	}

	wm := gue.WorkMap{
		jobTypeEmail: makeHandler("email", func(ctx context.Context, in *adapter.NotificationIntent) error {
			return s.Email.Send(ctx, in)
		}, logger),
		jobTypePush: makeHandler("push", func(ctx context.Context, in *adapter.NotificationIntent) error {
			return s.Push.Send(ctx, in)
		}, logger),
		jobTypeSMS: makeHandler("sms", func(ctx context.Context, in *adapter.NotificationIntent) error {
			return s.SMS.Send(ctx, in)
		}, logger),
	}

	wp, err := gue.NewWorkerPool(
		gc, wm, workers,
		gue.WithPoolQueue(notifyQueue),
		gue.WithPoolLogger(newGueLogAdapter(logger)),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("booking-notify"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}

	done := make(chan struct{}, 1)
	go func() {
		logger.Info().Int("workers", workers).Msg("starting notification workers")
		if err := wp.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("notification pool error")
		}
		logger.Info().Msg("notification workers finished")
		done <- struct{}{}
	}()
	return done, nil
}
