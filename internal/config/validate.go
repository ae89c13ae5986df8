package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"nudge/internal/reminder"
)

// Validate checks everything the runtime mappers rely on. It reports every
// problem it finds, joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		check(fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}

	_, err := ParseDurationAtLeast("scheduler.tick", cfg.Scheduler.Tick, time.Second, time.Second)
	check(err)
	_, err = ParseDurationField("notification.timeout", cfg.Notification.Timeout)
	check(err)

	if n := cfg.Notifier; n != nil {
		_, err = ParseDurationField("notifier.retry_base", n.RetryBase)
		check(err)
		_, err = ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay)
		check(err)
		_, err = ParseDurationField("notifier.dedup_window", n.DedupWindow)
		check(err)
		if n.Workers < 0 || n.QueueSize < 0 || n.RatePerSec < 0 || (n.RetryMax != nil && *n.RetryMax < 0) {
			check(errors.New("notifier: counts must be >= 0"))
		}
	}

	if cfg.Telegram.Enabled {
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			check(errors.New("telegram.token is required when telegram.enabled"))
		}
		if cfg.Telegram.ChatID == 0 {
			check(errors.New("telegram.chat_id is required when telegram.enabled"))
		}
	}
	_, err = ParseDurationField("telegram.timeout", cfg.Telegram.Timeout)
	check(err)

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				check(fmt.Errorf("storage.path is required when storage.driver=%s", s.Driver))
			}
		default:
			check(fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		_, err = ParseDurationField("storage.busy_timeout", s.BusyTimeout)
		check(err)
	}

	if d := cfg.Debug; d != nil && d.Enabled {
		if d.BlockProfileRate < 0 || d.MutexProfileFraction < 0 {
			check(errors.New("debug: profile rates must be >= 0"))
		}
	}

	for i, r := range cfg.Reminders {
		if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Schedule) == "" {
			check(fmt.Errorf("reminders[%d]: %w", i, reminder.ErrMissingField))
			continue
		}
		if _, err := reminder.ParseSchedule(r.Schedule); err != nil {
			check(fmt.Errorf("reminders[%d] %q: %w", i, r.Name, err))
		}
	}
	return errors.Join(errs...)
}
