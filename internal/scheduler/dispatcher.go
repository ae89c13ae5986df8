package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"nudge/internal/reminder"
	kit "nudge/internal/transport"
	"nudge/pkg/logx"
)

// Dispatcher turns reminder fires into notifications. Its Fire method is a
// reminder.FireFunc: it runs under the registry lock and never blocks.
type Dispatcher struct {
	log logx.Logger

	mu       sync.RWMutex
	notifier Notifier
	title    string
	timeout  time.Duration

	newID func() string
}

func NewDispatcher(cfg Config, n Notifier, log logx.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		log:      log,
		notifier: n,
		title:    cfg.Title,
		timeout:  cfg.Timeout,
		newID:    uuid.NewString,
	}
}

func (d *Dispatcher) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	d.mu.Lock()
	d.title, d.timeout = cfg.Title, cfg.Timeout
	d.mu.Unlock()
}

func (d *Dispatcher) Fire(f reminder.Fire) {
	d.mu.RLock()
	n, title, timeout := d.notifier, d.title, d.timeout
	d.mu.RUnlock()

	note := kit.Notification{
		ID:         d.newID(),
		ReminderID: int(f.ReminderID),
		Title:      title,
		Body:       f.Name,
		Timeout:    timeout,
		At:         f.At,
		Key:        fmt.Sprintf("%d:%d:%d", f.ReminderID, f.Handle, f.At.Truncate(time.Minute).Unix()),
		Live:       f.Live,
	}
	d.log.Info("reminder fired",
		logx.Int("id", int(f.ReminderID)),
		logx.String("name", f.Name),
		logx.String("schedule", f.Label),
		logx.String("fire_id", note.ID),
	)
	if n == nil {
		return
	}
	if err := n.Notify(context.Background(), note); err != nil {
		d.log.Warn("notification not queued", logx.Int("id", int(f.ReminderID)), logx.Err(err))
	}
}
