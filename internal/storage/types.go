package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	// MaxRecords caps the sqlite log. Zero means 10000.
	MaxRecords int
}

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// FireRecord is one fire log row.
type FireRecord struct {
	At         time.Time `json:"at"`
	FiredAt    time.Time `json:"fired_at"`
	FireID     string    `json:"fire_id"`
	ReminderID int       `json:"reminder_id"`
	Name       string    `json:"name"`
	Title      string    `json:"title"`
	Sink       string    `json:"sink"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts,omitempty"`
	Error      string    `json:"error,omitempty"`
}
