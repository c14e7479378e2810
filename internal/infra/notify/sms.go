// File: internal/infra/notify/sms.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"interpretation-booking/internal/config"
	"interpretation-booking/internal/domain/ports/adapter"
)

// SMSSender delivers one sms intent.
type SMSSender interface {
	Send(ctx context.Context, intent *adapter.NotificationIntent) error
}

var _ SMSSender = (*RESTSMSSender)(nil)

// RESTSMSSender posts text messages to the gateway's REST endpoint.
type RESTSMSSender struct {
	cfg  config.SMSConfig
	http *http.Client
	log  *zerolog.Logger
}

func NewRESTSMSSender(cfg config.SMSConfig, logger *zerolog.Logger) *RESTSMSSender {
	return &RESTSMSSender{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  logger,
	}
}

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

func (s *RESTSMSSender) Send(ctx context.Context, intent *adapter.NotificationIntent) error {
	if intent.Recipient.Phone == "" {
		s.log.Debug().Str("intent_id", intent.ID).Msg("no phone number, skip")
		return nil
	}
	body, err := json.Marshal(smsRequest{
		To:      intent.Recipient.Phone,
		From:    s.cfg.Sender,
		Message: intent.Contents["en"],
	})
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("sms gateway rejected request: %d", resp.StatusCode))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("sms to %s: %w", intent.Recipient.Phone, err)
	}
	s.log.Debug().Str("intent_id", intent.ID).Msg("sms sent")
	return nil
}
