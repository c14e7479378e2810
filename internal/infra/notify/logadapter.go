// File: internal/infra/notify/logadapter.go
package notify

import (
	"github.com/rs/zerolog"
	gueadapter "github.com/vgarvardt/gue/v5/adapter"
)

// gueLogAdapter routes gue's internal logging through zerolog.
type gueLogAdapter struct {
	log    *zerolog.Logger
	fields []gueadapter.Field
}

func newGueLogAdapter(logger *zerolog.Logger) *gueLogAdapter {
	return &gueLogAdapter{log: logger}
}

func (l *gueLogAdapter) Debug(msg string, fields ...gueadapter.Field) {
	l.do(l.log.Debug(), fields...).Msg(msg)
}

func (l *gueLogAdapter) Info(msg string, fields ...gueadapter.Field) {
	l.do(l.log.Info(), fields...).Msg(msg)
}

func (l *gueLogAdapter) Error(msg string, fields ...gueadapter.Field) {
	l.do(l.log.Error(), fields...).Msg(msg)
}

func (l *gueLogAdapter) With(fields ...gueadapter.Field) gueadapter.Logger {
	return &gueLogAdapter{log: l.log, fields: append(l.fields, fields...)}
}

func (l *gueLogAdapter) do(le *zerolog.Event, fields ...gueadapter.Field) *zerolog.Event {
	for _, f := range l.fields {
		le = le.Interface(f.Key, f.Value)
	}
	for _, f := range fields {
		le = le.Interface(f.Key, f.Value)
	}
	return le
}
