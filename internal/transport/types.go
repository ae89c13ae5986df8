package transport

import (
	"context"
	"time"
)

// Notification is one user-facing reminder message.
type Notification struct {
	ID         string
	ReminderID int
	Title      string
	Body       string
	Timeout    time.Duration
	At         time.Time
	// Key identifies the fire for dedup. Empty means title+body.
	Key string
	// Live reports whether the notification is still wanted. Nil means always.
	Live func() bool
}

// Wanted reports whether the notification should still be delivered.
func (n Notification) Wanted() bool {
	return n.Live == nil || n.Live()
}

// Sink delivers notifications to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	Close() error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, n Notification) error
}

func (f SinkFunc) Name() string { return f.SinkName }

func (f SinkFunc) Send(ctx context.Context, n Notification) error { return f.Fn(ctx, n) }

func (SinkFunc) Close() error { return nil }
