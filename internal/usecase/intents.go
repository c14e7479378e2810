// File: internal/usecase/intents.go
package usecase

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"interpretation-booking/internal/domain/model"
	"interpretation-booking/internal/domain/ports/adapter"
)

// Template ids understood by the notification dispatcher.
const (
	TemplateJobCreated       = "job-created"
	TemplateNewJob           = "new-job"
	TemplateJobAccepted      = "job-accepted"
	TemplateJobCancelled     = "job-cancelled"
	TemplateSessionEnded     = "session-ended"
	TemplateJobChangedDate   = "job-changed-date"
	TemplateJobChangedLang   = "job-changed-lang"
	TemplateJobChangedTransl = "job-changed-translator"
	TemplateJobNotCarriedOut = "job-not-carried-out"
	TemplateJobReopened      = "job-reopened"
)

// Push notification sounds; immediate bookings ring differently.
const (
	soundNormalBooking    = "normal_booking"
	soundEmergencyBooking = "emergency_booking"
)

const (
	nightStartHour    = 22
	businessStartHour = 8
)

// nextBusinessTime returns the next moment outside the night window. During
// the day it returns t unchanged.
func nextBusinessTime(t time.Time) time.Time {
	h := t.Hour()
	if h >= nightStartHour {
		d := t.AddDate(0, 0, 1)
		return time.Date(d.Year(), d.Month(), d.Day(), businessStartHour, 0, 0, 0, t.Location())
	}
	if h < businessStartHour {
		return time.Date(t.Year(), t.Month(), t.Day(), businessStartHour, 0, 0, 0, t.Location())
	}
	return t
}

func isNightTime(t time.Time) bool {
	h := t.Hour()
	return h >= nightStartHour || h < businessStartHour
}

// pushDelay computes the optional delivery deferral for a recipient who opted
// out of night notifications.
func pushDelay(t *model.Translator, now time.Time) *time.Time {
	if t != nil && t.NotGetNighttime && isNightTime(now) {
		d := nextBusinessTime(now)
		return &d
	}
	return nil
}

func customerRecipient(c *model.Customer, job *model.Job) adapter.Recipient {
	email := job.CustomerEmail
	if email == "" {
		email = c.Email
	}
	return adapter.Recipient{UserID: c.ID, Email: email, Name: c.Name, Phone: c.Phone}
}

func translatorRecipient(t *model.Translator) adapter.Recipient {
	return adapter.Recipient{UserID: t.ID, Email: t.Email, Name: t.Name, Phone: t.Phone}
}

func jobPayload(job *model.Job, lang string) map[string]string {
	return map[string]string{
		"job_id":   job.ID,
		"language": lang,
		"duration": fmt.Sprintf("%d", job.Duration),
		"due":      job.Due.Format("2006-01-02 15:04"),
	}
}

func emailIntent(r adapter.Recipient, job *model.Job, templateID, subject string, payload map[string]string) adapter.NotificationIntent {
	return adapter.NotificationIntent{
		ID:         uuid.NewString(),
		Channel:    adapter.ChannelEmail,
		Recipient:  r,
		TemplateID: templateID,
		Subject:    subject,
		Payload:    payload,
		JobID:      job.ID,
	}
}

func pushIntent(r adapter.Recipient, job *model.Job, templateID string, contents map[string]string, delay *time.Time) adapter.NotificationIntent {
	sound := soundNormalBooking
	if job.Immediate {
		sound = soundEmergencyBooking
	}
	return adapter.NotificationIntent{
		ID:         uuid.NewString(),
		Channel:    adapter.ChannelPush,
		Recipient:  r,
		TemplateID: templateID,
		Contents:   contents,
		JobID:      job.ID,
		Sound:      sound,
		DelayUntil: delay,
	}
}

func smsIntent(r adapter.Recipient, job *model.Job, text string) adapter.NotificationIntent {
	return adapter.NotificationIntent{
		ID:        uuid.NewString(),
		Channel:   adapter.ChannelSMS,
		Recipient: r,
		Contents:  map[string]string{"en": text},
		JobID:     job.ID,
	}
}
