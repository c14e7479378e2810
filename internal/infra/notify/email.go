// File: internal/infra/notify/email.go
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"

	"interpretation-booking/internal/config"
	"interpretation-booking/internal/domain/ports/adapter"
)

// EmailSender delivers one email intent.
type EmailSender interface {
	Send(ctx context.Context, intent *adapter.NotificationIntent) error
}

var _ EmailSender = (*SMTPSender)(nil)

// SMTPSender renders intents into plain-text mails and ships them over SMTP.
type SMTPSender struct {
	cfg config.SMTPConfig
	log *zerolog.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, logger *zerolog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: logger}
}

func (s *SMTPSender) Send(ctx context.Context, intent *adapter.NotificationIntent) error {
	if intent.Recipient.Email == "" {
		s.log.Debug().Str("intent_id", intent.ID).Msg("no email address, skip")
		return nil
	}
	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	e.To = []string{intent.Recipient.Email}
	e.Subject = intent.Subject
	e.Text = []byte(renderBody(intent))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("smtp send to %s: %w", intent.Recipient.Email, err)
	}
	s.log.Debug().Str("intent_id", intent.ID).Str("template", intent.TemplateID).Msg("email sent")
	return nil
}

// renderBody produces the plain-text mail body: greeting, the booking facts
// from the payload, and a sign-off. Templated HTML rendering is left to the
// provider side of the house.
func renderBody(intent *adapter.NotificationIntent) string {
	var b strings.Builder
	if intent.Recipient.Name != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", intent.Recipient.Name)
	} else {
		b.WriteString("Hi,\n\n")
	}
	if text, ok := intent.Contents["en"]; ok && text != "" {
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	if len(intent.Payload) > 0 {
		order := []string{"job_id", "language", "duration", "due", "session_time", "for_text"}
		labels := map[string]string{
			"job_id":       "Booking no",
			"language":     "Language",
			"duration":     "Duration (min)",
			"due":          "Session time",
			"session_time": "Session length",
			"for_text":     "For",
		}
		for _, k := range order {
			if v, ok := intent.Payload[k]; ok && v != "" {
				fmt.Fprintf(&b, "%s: %s\n", labels[k], v)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("Regards,\nThe booking team\n")
	return b.String()
}
