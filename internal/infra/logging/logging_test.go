// File: internal/infra/logging/logging_test.go
package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith(t *testing.T) {
	t.Run("should stamp context ids onto every event", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)

		ctx := WithTraceID(context.Background(), "trace-1")
		ctx = WithJobID(ctx, "job-1")
		ctx = WithTranslatorID(ctx, "t1")

		With(ctx, &base).Info().Msg("hello")

		out := buf.String()
		for _, want := range []string{`"trace_id":"trace-1"`, `"job_id":"job-1"`, `"translator_id":"t1"`} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %s in %s", want, out)
			}
		}
	})

	t.Run("should leave absent ids out", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)

		With(WithJobID(context.Background(), "job-1"), &base).Info().Msg("hello")

		out := buf.String()
		if !strings.Contains(out, `"job_id":"job-1"`) {
			t.Errorf("expected job_id in %s", out)
		}
		if strings.Contains(out, "trace_id") || strings.Contains(out, "translator_id") {
			t.Errorf("unexpected ids in %s", out)
		}
	})
}

func TestTraceDuration(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf).Level(zerolog.TraceLevel)

	done := TraceDuration(&base, "Sweeper.run")
	done()

	out := buf.String()
	if !strings.Contains(out, `"method":"Sweeper.run"`) {
		t.Errorf("expected method name in %s", out)
	}
	if !strings.Contains(out, "start") || !strings.Contains(out, "finish") {
		t.Errorf("expected start and finish events in %s", out)
	}
	if !strings.Contains(out, "duration") {
		t.Errorf("expected a duration field in %s", out)
	}
}
