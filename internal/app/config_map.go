package app

import (
	"fmt"
	"strings"
	"time"

	"nudge/internal/config"
	"nudge/internal/notifier"
	"nudge/internal/observability/debughttp"
	"nudge/internal/scheduler"
	"nudge/internal/storage"
	kit "nudge/internal/transport"
	"nudge/internal/transport/desktop"
	"nudge/internal/transport/logsink"
	"nudge/internal/transport/telegram"
	"nudge/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config, interactive bool) logx.Config {
	lc := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		TailLines: cfg.Logging.TailLines,
	}
	if lc.TailLines <= 0 {
		lc.TailLines = 200
	}
	// The terminal belongs to the TUI; logs go to the tail buffer and file.
	if interactive {
		lc.Console = false
	}
	return lc
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	tick, err := config.ParseDurationAtLeast("scheduler.tick", cfg.Scheduler.Tick, scheduler.DefaultTick, scheduler.MinTick)
	if err != nil {
		return scheduler.Config{}, err
	}
	timeout, err := config.ParseDurationOrDefault("notification.timeout", cfg.Notification.Timeout, scheduler.DefaultTimeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	title := strings.TrimSpace(cfg.Notification.Title)
	if title == "" {
		title = scheduler.DefaultTitle
	}
	return scheduler.Config{
		Enabled: cfg.Scheduler.IsEnabled(),
		Tick:    tick,
		Title:   title,
		Timeout: timeout,
	}, nil
}

// mapNotifierConfig defaults to an enabled pipeline when the section is omitted.
func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	out := notifier.Config{
		Enabled:         true,
		Workers:         2,
		QueueSize:       256,
		RatePerSec:      5,
		RetryMax:        2,
		RetryBase:       500 * time.Millisecond,
		RetryMaxDelay:   10 * time.Second,
		DedupWindow:     0,
		DedupMaxEntries: 1000,
	}
	n := cfg.Notifier
	if n == nil {
		return out, nil
	}
	out.Enabled = n.IsEnabled()
	if n.Workers != 0 {
		out.Workers = n.Workers
	}
	if n.QueueSize != 0 {
		out.QueueSize = n.QueueSize
	}
	if n.RatePerSec != 0 {
		out.RatePerSec = n.RatePerSec
	}
	if n.RetryMax != nil {
		out.RetryMax = *n.RetryMax
	}
	if n.DedupMaxEntries != 0 {
		out.DedupMaxEntries = n.DedupMaxEntries
	}

	var err error
	if out.RetryBase, err = config.ParseDurationOrDefault("notifier.retry_base", n.RetryBase, out.RetryBase); err != nil {
		return notifier.Config{}, err
	}
	if out.RetryMaxDelay, err = config.ParseDurationOrDefault("notifier.retry_max_delay", n.RetryMaxDelay, out.RetryMaxDelay); err != nil {
		return notifier.Config{}, err
	}
	if out.DedupWindow, err = config.ParseDurationField("notifier.dedup_window", n.DedupWindow); err != nil {
		return notifier.Config{}, err
	}
	return out, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "", "none":
		return storage.Config{}, false, nil
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: driver, Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy, MaxRecords: sc.MaxRecords}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// buildSinks returns the configured delivery targets. The log sink is used
// when nothing else is enabled so fires are never silent.
func buildSinks(cfg *config.Config, log logx.Logger) ([]kit.Sink, error) {
	var sinks []kit.Sink
	if cfg.Desktop.Enabled {
		sinks = append(sinks, desktop.New(desktop.Config{
			AppName: cfg.Desktop.AppName,
			Icon:    cfg.Desktop.Icon,
		}, log.With(logx.String("comp", "desktop"))))
	}
	if cfg.Telegram.Enabled {
		timeout, err := config.ParseDurationOrDefault("telegram.timeout", cfg.Telegram.Timeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		tg, err := telegram.New(telegram.Config{
			Token:    cfg.Telegram.Token,
			ChatID:   cfg.Telegram.ChatID,
			ThreadID: cfg.Telegram.ThreadID,
			Timeout:  timeout,
		}, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, fmt.Errorf("telegram sink: %w", err)
		}
		sinks = append(sinks, tg)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, logsink.New(log.With(logx.String("comp", "notify"))))
	}
	return sinks, nil
}

func mapDebugConfig(cfg *config.Config) debughttp.Config {
	d := cfg.Debug
	if d == nil {
		return debughttp.Config{}
	}
	return debughttp.Config{
		Enabled:              d.Enabled,
		Addr:                 d.Addr,
		Token:                d.Token,
		Pprof:                d.Pprof,
		BlockProfileRate:     d.BlockProfileRate,
		MutexProfileFraction: d.MutexProfileFraction,
	}
}
