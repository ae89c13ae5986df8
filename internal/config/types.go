package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging      LoggingConfig      `json:"logging"`
	Scheduler    SchedulerConfig    `json:"scheduler"`
	Notification NotificationConfig `json:"notification"`

	// Notifier defaults to enabled when the section is omitted.
	Notifier *NotifierConfig `json:"notifier,omitempty"`

	Desktop  DesktopConfig  `json:"desktop"`
	Telegram TelegramConfig `json:"telegram"`

	Storage *StorageConfig `json:"storage,omitempty"`

	// Debug serves health, status and pprof over local HTTP. Off by default.
	Debug *DebugConfig `json:"debug,omitempty"`

	// Reminders seeded at startup and appended on reload.
	Reminders []ReminderConfig `json:"reminders,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
	// TailLines keeps recent log lines in memory for the TUI. 0 means 200.
	TailLines int `json:"tail_lines,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the tick source.
//
// Enabled is a pointer so an omitted key means enabled.
type SchedulerConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
	// Tick is the evaluation cadence. Default "1s", minimum "1s".
	Tick string `json:"tick,omitempty"`
}

func (s SchedulerConfig) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// NotificationConfig shapes every reminder notification.
type NotificationConfig struct {
	// Title defaults to "Reminder!". The body is always the reminder name.
	Title string `json:"title,omitempty"`
	// Timeout is how long the desktop notification stays visible. Default "5s".
	Timeout string `json:"timeout,omitempty"`
}

// NotifierConfig controls the async notification pipeline.
//
// Enabled and RetryMax are pointers: an omitted enabled key means enabled,
// and retry_max: 0 disables retries instead of selecting the default.
type NotifierConfig struct {
	Enabled         *bool  `json:"enabled,omitempty"`
	Workers         int    `json:"workers"`
	QueueSize       int    `json:"queue_size"`
	RatePerSec      int    `json:"rate_per_sec"`
	RetryMax        *int   `json:"retry_max,omitempty"`
	RetryBase       string `json:"retry_base"`
	RetryMaxDelay   string `json:"retry_max_delay"`
	DedupWindow     string `json:"dedup_window"`
	DedupMaxEntries int    `json:"dedup_max_entries"`
}

func (n NotifierConfig) IsEnabled() bool { return n.Enabled == nil || *n.Enabled }

type DesktopConfig struct {
	Enabled bool   `json:"enabled"`
	AppName string `json:"app_name,omitempty"`
	Icon    string `json:"icon,omitempty"`
}

// TelegramConfig configures the optional Telegram sink.
//
// Token may reference environment variables as ${NAME}; they are expanded
// when the config is parsed so the token can live in a .env file.
type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

// StorageConfig controls the fire log.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./nudge.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
	MaxRecords  int    `json:"max_records,omitempty"`
}

// DebugConfig controls the local debug HTTP server.
//
// Non-loopback addresses require a token.
type DebugConfig struct {
	Enabled              bool   `json:"enabled"`
	Addr                 string `json:"addr,omitempty"` // default 127.0.0.1:6061
	Token                string `json:"token,omitempty"`
	Pprof                bool   `json:"pprof,omitempty"`
	BlockProfileRate     int    `json:"block_profile_rate,omitempty"`
	MutexProfileFraction int    `json:"mutex_profile_fraction,omitempty"`
}

// ReminderConfig is one reminder as typed in the input form: a name and a
// schedule that is either minutes ("30") or a daily clock time ("09:30").
type ReminderConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Active   bool   `json:"active,omitempty"`
}
