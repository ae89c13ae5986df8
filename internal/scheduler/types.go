package scheduler

import (
	"context"
	"time"

	"nudge/internal/reminder"
	kit "nudge/internal/transport"
)

const (
	DefaultTick    = time.Second
	MinTick        = time.Second
	DefaultTitle   = "Reminder!"
	DefaultTimeout = 5 * time.Second
)

type Config struct {
	Enabled bool
	Tick    time.Duration
	Title   string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.Tick < MinTick {
		c.Tick = MinTick
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Notifier accepts notifications without blocking.
type Notifier interface {
	Notify(ctx context.Context, n kit.Notification) error
}

// Snapshot is a point-in-time view for status output.
type Snapshot struct {
	Running   bool             `json:"running"`
	Tick      time.Duration    `json:"tick"`
	Ticks     uint64           `json:"ticks"`
	Fires     uint64           `json:"fires"`
	LastTick  time.Time        `json:"last_tick"`
	Heartbeat time.Time        `json:"heartbeat"` // wall time of the last tick
	Reminders []reminder.Entry `json:"reminders"`
}

// TickInfo is the payload of scheduler.tick events.
type TickInfo struct {
	At    time.Time `json:"at"`
	Fires int       `json:"fires"`
}
