// File: internal/usecase/intents_test.go
package usecase

import (
	"testing"
	"time"

	"interpretation-booking/internal/domain/model"
)

func TestNextBusinessTime(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "late evening rolls to next morning",
			in:   time.Date(2025, 5, 1, 23, 15, 0, 0, loc),
			want: time.Date(2025, 5, 2, 8, 0, 0, 0, loc),
		},
		{
			name: "early morning rolls to same morning",
			in:   time.Date(2025, 5, 1, 3, 0, 0, 0, loc),
			want: time.Date(2025, 5, 1, 8, 0, 0, 0, loc),
		},
		{
			name: "daytime passes through",
			in:   time.Date(2025, 5, 1, 14, 30, 0, 0, loc),
			want: time.Date(2025, 5, 1, 14, 30, 0, 0, loc),
		},
		{
			name: "night window opens at 22",
			in:   time.Date(2025, 5, 1, 22, 0, 0, 0, loc),
			want: time.Date(2025, 5, 2, 8, 0, 0, 0, loc),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := nextBusinessTime(c.in); !got.Equal(c.want) {
				t.Errorf("nextBusinessTime(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestPushDelay(t *testing.T) {
	night := time.Date(2025, 5, 1, 23, 0, 0, 0, time.UTC)
	day := time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC)

	optedOut := &model.Translator{ID: "t1", NotGetNighttime: true}
	if d := pushDelay(optedOut, night); d == nil || d.Hour() != businessStartHour {
		t.Errorf("expected deferral to %02d:00, got %v", businessStartHour, d)
	}
	if d := pushDelay(optedOut, day); d != nil {
		t.Errorf("expected no deferral during the day, got %v", d)
	}
	anyTime := &model.Translator{ID: "t2"}
	if d := pushDelay(anyTime, night); d != nil {
		t.Errorf("expected no deferral without the opt-out, got %v", d)
	}
}

func TestPushIntentSound(t *testing.T) {
	job := paidJob()
	r := translatorRecipient(&model.Translator{ID: "t1"})
	if in := pushIntent(r, job, TemplateNewJob, nil, nil); in.Sound != soundNormalBooking {
		t.Errorf("expected %s, got %s", soundNormalBooking, in.Sound)
	}
	job.Immediate = true
	if in := pushIntent(r, job, TemplateNewJob, nil, nil); in.Sound != soundEmergencyBooking {
		t.Errorf("expected %s, got %s", soundEmergencyBooking, in.Sound)
	}
}
