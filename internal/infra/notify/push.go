// File: internal/infra/notify/push.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"interpretation-booking/internal/config"
	"interpretation-booking/internal/domain/ports/adapter"
)

// PushSender delivers one push intent.
type PushSender interface {
	Send(ctx context.Context, intent *adapter.NotificationIntent) error
}

var _ PushSender = (*RESTPushSender)(nil)

// RESTPushSender posts OneSignal-style notification requests. Transient
// provider failures are retried with exponential backoff.
type RESTPushSender struct {
	cfg  config.PushConfig
	http *http.Client
	log  *zerolog.Logger
}

func NewRESTPushSender(cfg config.PushConfig, logger *zerolog.Logger) *RESTPushSender {
	return &RESTPushSender{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  logger,
	}
}

// pushRequest is the provider wire format: per-locale contents, the data
// payload the apps read, per-platform sounds and an optional deferred
// delivery timestamp.
type pushRequest struct {
	AppID          string            `json:"app_id"`
	ExternalUsers  []string          `json:"include_external_user_ids"`
	Contents       map[string]string `json:"contents"`
	Data           map[string]string `json:"data,omitempty"`
	AndroidSound   string            `json:"android_sound,omitempty"`
	IOSSound       string            `json:"ios_sound,omitempty"`
	SendAfter      string            `json:"send_after,omitempty"`
	AndroidChannel string            `json:"existing_android_channel_id,omitempty"`
}

func buildPushRequest(appID string, intent *adapter.NotificationIntent) pushRequest {
	req := pushRequest{
		AppID:         appID,
		ExternalUsers: []string{intent.Recipient.UserID},
		Contents:      intent.Contents,
		Data:          intent.Payload,
	}
	if req.Contents == nil {
		req.Contents = map[string]string{"en": intent.Subject}
	}
	if intent.Sound != "" {
		req.AndroidSound = intent.Sound
		req.IOSSound = intent.Sound + ".mp3"
	}
	if intent.DelayUntil != nil {
		req.SendAfter = intent.DelayUntil.UTC().Format(time.RFC3339)
	}
	return req
}

func (s *RESTPushSender) Send(ctx context.Context, intent *adapter.NotificationIntent) error {
	body, err := json.Marshal(buildPushRequest(s.cfg.AppID, intent))
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Basic "+s.cfg.RestKey)

		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("push provider returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("push provider rejected request: %d %s", resp.StatusCode, string(b)))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("push to %s: %w", intent.Recipient.UserID, err)
	}
	s.log.Debug().Str("intent_id", intent.ID).Str("user", intent.Recipient.UserID).Msg("push sent")
	return nil
}
