package reminder

import "time"

// Timer holds one reminder's schedule and activation state and decides when
// it is due. It does no I/O and is not safe for concurrent use on its own;
// Registry serializes access.
type Timer struct {
	name     string
	schedule Schedule
	active   bool

	// clock-time only: minute stamp of the last fire (zero when none)
	lastFired time.Time
	// interval only: next fire instant (zero when inactive)
	nextDue time.Time
}

func NewTimer(name string, s Schedule) *Timer {
	return &Timer{name: name, schedule: s}
}

func (t *Timer) Name() string       { return t.name }
func (t *Timer) Schedule() Schedule { return t.schedule }
func (t *Timer) Active() bool       { return t.active }

// NextDue returns the instant the timer is expected to fire next, or zero when inactive.
func (t *Timer) NextDue(now time.Time) time.Time {
	if !t.active {
		return time.Time{}
	}
	if t.schedule.Kind() == KindInterval {
		return t.nextDue
	}
	h, m := t.schedule.ClockTime()
	today := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	if !today.Before(now.Truncate(time.Minute)) && !today.Equal(t.lastFired) {
		return today
	}
	return t.schedule.Next(now)
}

// Activate arms the timer. Interval timers fire once right away, so the
// return value reports whether a notification is due. Already-active timers
// are left untouched.
func (t *Timer) Activate(now time.Time) bool {
	if t.active {
		return false
	}
	t.active = true
	switch t.schedule.Kind() {
	case KindInterval:
		t.nextDue = now.Add(t.schedule.Period())
		return true
	default:
		t.lastFired = time.Time{}
		return false
	}
}

// Deactivate disarms the timer and forgets its fire bookkeeping.
// It reports whether the state changed.
func (t *Timer) Deactivate() bool {
	if !t.active {
		return false
	}
	t.active = false
	t.lastFired = time.Time{}
	t.nextDue = time.Time{}
	return true
}

// Toggle flips the activation state and reports whether a notification is due.
func (t *Timer) Toggle(now time.Time) bool {
	if t.active {
		t.Deactivate()
		return false
	}
	return t.Activate(now)
}

// Evaluate reports whether the timer fires at now and advances its state if so.
func (t *Timer) Evaluate(now time.Time) bool {
	if !t.active {
		return false
	}
	switch t.schedule.Kind() {
	case KindInterval:
		if now.Before(t.nextDue) {
			return false
		}
		// Re-arm from now, not from the previous due instant.
		t.nextDue = now.Add(t.schedule.Period())
		return true
	case KindClockTime:
		minute := now.Truncate(time.Minute)
		h, m := t.schedule.ClockTime()
		if minute.Hour() != h || minute.Minute() != m {
			return false
		}
		if minute.Equal(t.lastFired) {
			return false
		}
		t.lastFired = minute
		return true
	default:
		return false
	}
}
