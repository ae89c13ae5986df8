// Package logsink writes notifications to the structured log. It is the
// fallback sink when no other destination is configured.
package logsink

import (
	"context"

	kit "nudge/internal/transport"
	"nudge/pkg/logx"
)

type Sink struct {
	log logx.Logger
}

func New(log logx.Logger) *Sink {
	return &Sink{log: log.With(logx.String("sink", "log"))}
}

func (s *Sink) Name() string { return "log" }

func (s *Sink) Send(_ context.Context, n kit.Notification) error {
	s.log.Info("notification",
		logx.String("title", n.Title),
		logx.String("body", n.Body),
		logx.Int("reminder_id", n.ReminderID),
		logx.String("fire_id", n.ID),
	)
	return nil
}

func (s *Sink) Close() error { return nil }
