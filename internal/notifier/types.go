package notifier

import "time"

// Config controls the async notification pipeline.
type Config struct {
	Enabled         bool
	Workers         int
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	RetryMaxDelay   time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
}

type HistoryItem struct {
	At    time.Time `json:"at"`
	Sink  string    `json:"sink"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
}

// Event is the payload of notifier.* bus events.
type Event struct {
	ID         string    `json:"id"`
	ReminderID int       `json:"reminder_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Sink       string    `json:"sink,omitempty"`
	Key        string    `json:"key"`
	At         time.Time `json:"at"`
	FiredAt    time.Time `json:"fired_at"`
	Attempts   int       `json:"attempts,omitempty"`
	Error      string    `json:"error,omitempty"`
}
