package adapter

import (
	"context"
	"time"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Recipient is the resolved delivery target for one intent.
type Recipient struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// NotificationIntent is produced by lifecycle transitions and consumed by the
// dispatcher. Delivery is best-effort and never rolls a transition back.
type NotificationIntent struct {
	ID         string    `json:"id"`
	Channel    Channel   `json:"channel"`
	Recipient  Recipient `json:"recipient"`
	TemplateID string    `json:"template_id"`
	Subject    string    `json:"subject,omitempty"`
	// Contents maps locale codes to message text (push and sms bodies).
	Contents map[string]string `json:"contents,omitempty"`
	Payload  map[string]string `json:"payload,omitempty"`
	JobID    string            `json:"job_id"`
	// Sound/badge hints for push.
	Sound string `json:"sound,omitempty"`
	// DelayUntil defers delivery, e.g. past a recipient's night window.
	DelayUntil *time.Time `json:"delay_until,omitempty"`
}

// Notifier accepts intents for asynchronous delivery. Implementations must
// not block on provider round-trips and must report failures out-of-band.
type Notifier interface {
	Dispatch(ctx context.Context, intents []NotificationIntent) error
}
