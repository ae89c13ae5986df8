package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Kind int

const (
	KindInterval Kind = iota + 1
	KindClockTime
)

func (k Kind) String() string {
	switch k {
	case KindInterval:
		return "interval"
	case KindClockTime:
		return "clock"
	default:
		return "unknown"
	}
}

// Schedule is either "every Minutes minutes" or "daily at Hour:Minute".
// Only values returned by ParseSchedule, Every or At are valid.
type Schedule struct {
	kind    Kind
	minutes int
	hour    int
	minute  int
}

// Every returns an interval schedule.
func Every(minutes int) (Schedule, error) {
	if minutes <= 0 {
		return Schedule{}, fmt.Errorf("%w: got %d", ErrInvalidInterval, minutes)
	}
	return Schedule{kind: KindInterval, minutes: minutes}, nil
}

// At returns a daily clock-time schedule.
func At(hour, minute int) (Schedule, error) {
	if hour < 0 || hour >= 24 || minute < 0 || minute >= 60 {
		return Schedule{}, fmt.Errorf("%w: got %d:%02d", ErrInvalidTimeFormat, hour, minute)
	}
	return Schedule{kind: KindClockTime, hour: hour, minute: minute}, nil
}

// ParseSchedule parses user input.
//
// Supported forms:
//   - "HH:MM" (any input containing a colon): daily at that clock time
//   - "N": every N minutes, N > 0
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, ":") {
		hs, ms, _ := strings.Cut(s, ":")
		h, err := strconv.Atoi(strings.TrimSpace(hs))
		if err != nil {
			return Schedule{}, fmt.Errorf("%w: hour %q", ErrParse, hs)
		}
		m, err := strconv.Atoi(strings.TrimSpace(ms))
		if err != nil {
			return Schedule{}, fmt.Errorf("%w: minute %q", ErrParse, ms)
		}
		return At(h, m)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	return Every(n)
}

func (s Schedule) Kind() Kind { return s.kind }

func (s Schedule) IsZero() bool { return s.kind == 0 }

// Period is the interval length. Zero for clock-time schedules.
func (s Schedule) Period() time.Duration {
	if s.kind != KindInterval {
		return 0
	}
	return time.Duration(s.minutes) * time.Minute
}

func (s Schedule) Minutes() int { return s.minutes }

// ClockTime returns the target hour and minute of a clock-time schedule.
func (s Schedule) ClockTime() (hour, minute int) { return s.hour, s.minute }

// Label is the short display form: "@HH:MM" or "<n> min".
func (s Schedule) Label() string {
	switch s.kind {
	case KindInterval:
		return fmt.Sprintf("%d min", s.minutes)
	case KindClockTime:
		return fmt.Sprintf("@%02d:%02d", s.hour, s.minute)
	default:
		return "?"
	}
}

func (s Schedule) String() string { return s.Label() }

// Next is the earliest instant after now that the schedule would match if it
// were armed at now. It is a display helper; timers keep their own state.
func (s Schedule) Next(now time.Time) time.Time {
	switch s.kind {
	case KindInterval:
		return now.Add(s.Period())
	case KindClockTime:
		spec, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", s.minute, s.hour))
		if err != nil {
			return time.Time{}
		}
		return spec.Next(now)
	default:
		return time.Time{}
	}
}
