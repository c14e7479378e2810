// File: internal/infra/notify/dispatcher.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"

	"interpretation-booking/internal/domain/ports/adapter"
)

const notifyQueue = "notifications"

const (
	jobTypeEmail = "notify_email"
	jobTypePush  = "notify_push"
	jobTypeSMS   = "notify_sms"
)

func jobTypeForChannel(ch adapter.Channel) (string, error) {
	switch ch {
	case adapter.ChannelEmail:
		return jobTypeEmail, nil
	case adapter.ChannelPush:
		return jobTypePush, nil
	case adapter.ChannelSMS:
		return jobTypeSMS, nil
	}
	return "", fmt.Errorf("unknown notification channel %q", ch)
}

var _ adapter.Notifier = (*Dispatcher)(nil)

// Dispatcher enqueues intents on the postgres job queue. Delivery happens in
// the worker pool; a deferred intent is scheduled via RunAt, so night-window
// pushes sit in the queue until the morning.
type Dispatcher struct {
	gc  *gue.Client
	log *zerolog.Logger
}

func NewDispatcher(pool *pgxpool.Pool, logger *zerolog.Logger) (*Dispatcher, error) {
	gc, err := gue.NewClient(pgxv5.NewConnPool(pool))
	if err != nil {
		return nil, fmt.Errorf("can't init gue: %w", err)
	}
	return &Dispatcher{gc: gc, log: logger}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, intents []adapter.NotificationIntent) error {
	var firstErr error
	for _, intent := range intents {
		if err := d.enqueue(ctx, intent); err != nil {
			d.log.Error().Err(err).Str("intent_id", intent.ID).Str("channel", string(intent.Channel)).
				Msg("failed to enqueue notification")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (d *Dispatcher) enqueue(ctx context.Context, intent adapter.NotificationIntent) error {
	jobType, err := jobTypeForChannel(intent.Channel)
	if err != nil {
		return err
	}
	args, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("can't marshal intent: %w", err)
	}
	j := &gue.Job{
		Type:  jobType,
		Queue: notifyQueue,
		Args:  args,
	}
	if intent.DelayUntil != nil {
		j.RunAt = *intent.DelayUntil
	}
	if err := d.gc.Enqueue(ctx, j); err != nil {
		return fmt.Errorf("can't enqueue %s: %w", jobType, err)
	}
	return nil
}
