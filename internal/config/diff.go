package config

import (
	"reflect"
	"strings"

	"nudge/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and
// secret-free log fields describing them.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	var (
		changed []string
		attrs   []logx.Field
	)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Scheduler.IsEnabled() != newCfg.Scheduler.IsEnabled() ||
		strings.TrimSpace(oldCfg.Scheduler.Tick) != strings.TrimSpace(newCfg.Scheduler.Tick) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.IsEnabled()),
			logx.String("scheduler.tick", newCfg.Scheduler.Tick),
		)
	}

	if oldCfg.Notification != newCfg.Notification {
		changed = append(changed, "notification")
		attrs = append(attrs,
			logx.String("notification.title", newCfg.Notification.Title),
			logx.String("notification.timeout", newCfg.Notification.Timeout),
		)
	}

	if !reflect.DeepEqual(oldCfg.Notifier, newCfg.Notifier) {
		changed = append(changed, "notifier")
		if n := newCfg.Notifier; n != nil {
			attrs = append(attrs,
				logx.Bool("notifier.enabled", n.IsEnabled()),
				logx.Int("notifier.workers", n.Workers),
				logx.Int("notifier.rate_per_sec", n.RatePerSec),
				logx.String("notifier.dedup_window", n.DedupWindow),
			)
		}
	}

	if oldCfg.Desktop != newCfg.Desktop {
		changed = append(changed, "desktop")
		attrs = append(attrs, logx.Bool("desktop.enabled", newCfg.Desktop.Enabled))
	}

	// Never log the token itself.
	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Enabled != nt.Enabled || ot.ChatID != nt.ChatID || ot.ThreadID != nt.ThreadID ||
		ot.Timeout != nt.Timeout || ot.Token != nt.Token {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.enabled", nt.Enabled),
			logx.Int64("telegram.chat_id", nt.ChatID),
			logx.Bool("telegram.token_set", strings.TrimSpace(nt.Token) != ""),
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		if s := newCfg.Storage; s != nil {
			attrs = append(attrs, logx.String("storage.driver", s.Driver))
		}
	}

	if !reflect.DeepEqual(oldCfg.Debug, newCfg.Debug) {
		changed = append(changed, "debug")
		if d := newCfg.Debug; d != nil {
			attrs = append(attrs,
				logx.Bool("debug.enabled", d.Enabled),
				logx.String("debug.addr", d.Addr),
				logx.Bool("debug.pprof", d.Pprof),
				logx.Bool("debug.token_set", d.Token != ""),
			)
		}
	}

	if !reflect.DeepEqual(oldCfg.Reminders, newCfg.Reminders) {
		changed = append(changed, "reminders")
		attrs = append(attrs, logx.Int("reminders.count", len(newCfg.Reminders)))
	}

	return changed, attrs
}
