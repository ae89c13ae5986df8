package reminder

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"nudge/internal/clock"
	"nudge/internal/eventbus"
)

// ID identifies a reminder within a Registry. IDs start at 1 and follow
// insertion order.
type ID int

// Handle identifies one activation of a reminder. A new handle is issued on
// every activation and revoked on deactivation.
type Handle uint64

// Fire is one positive evaluation of a timer.
type Fire struct {
	ReminderID ID
	Name       string
	Label      string
	Handle     Handle
	At         time.Time

	live func() bool
}

// Live reports whether the activation that produced this fire is still current.
// Consumers that hold a Fire for a while (queues, retries) must check it
// right before delivering.
func (f Fire) Live() bool {
	if f.live == nil {
		return true
	}
	return f.live()
}

// FireFunc receives fires. It is called with the registry lock held and must
// not block or call back into the registry.
type FireFunc func(Fire)

// Entry is the read-only projection of a reminder used by presentation layers.
type Entry struct {
	ID      ID
	Name    string
	Label   string
	Kind    Kind
	Active  bool
	NextDue time.Time
}

// Event is the payload of reminder.* bus events.
type Event struct {
	ID     ID        `json:"id"`
	Name   string    `json:"name"`
	Label  string    `json:"label"`
	Active bool      `json:"active"`
	At     time.Time `json:"at"`
}

// Registry is the ordered collection of reminders. It is safe for concurrent
// use: user mutations and the tick driver's evaluation are serialized.
type Registry struct {
	mu     sync.Mutex
	clock  clock.Clock
	bus    eventbus.Bus
	onFire FireFunc

	timers  []*Timer
	handles map[ID]Handle
	seq     Handle
}

type Option func(*Registry)

func WithClock(c clock.Clock) Option { return func(r *Registry) { r.clock = c } }

func WithBus(b eventbus.Bus) Option { return func(r *Registry) { r.bus = b } }

func WithFireFunc(fn FireFunc) Option { return func(r *Registry) { r.onFire = fn } }

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{handles: map[ID]Handle{}}
	for _, o := range opts {
		o(r)
	}
	if r.clock == nil {
		r.clock = clock.SystemClock{}
	}
	if r.bus == nil {
		r.bus = eventbus.Nop{}
	}
	return r
}

// SetFireFunc replaces the fire sink.
func (r *Registry) SetFireFunc(fn FireFunc) {
	r.mu.Lock()
	r.onFire = fn
	r.mu.Unlock()
}

// Add validates user input and appends a new inactive reminder.
func (r *Registry) Add(name, rawSchedule string) (ID, error) {
	name = strings.TrimSpace(name)
	rawSchedule = strings.TrimSpace(rawSchedule)
	if name == "" {
		return 0, fmt.Errorf("%w: name is empty", ErrMissingField)
	}
	if rawSchedule == "" {
		return 0, fmt.Errorf("%w: schedule is empty", ErrMissingField)
	}
	s, err := ParseSchedule(rawSchedule)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.timers = append(r.timers, NewTimer(name, s))
	id := ID(len(r.timers))
	r.mu.Unlock()

	r.publish(eventbus.ReminderAdded, Event{ID: id, Name: name, Label: s.Label(), At: r.clock.Now()})
	return id, nil
}

// Toggle flips the reminder's activation and returns the new state.
func (r *Registry) Toggle(id ID) (bool, error) {
	r.mu.Lock()
	t, err := r.lookupLocked(id)
	if err != nil {
		r.mu.Unlock()
		return false, err
	}
	if t.Active() {
		r.deactivateLocked(id, t)
	} else {
		r.activateLocked(id, t, r.clock.Now())
	}
	active := t.Active()
	r.mu.Unlock()
	return active, nil
}

// Activate arms the reminder. It reports whether the state changed.
func (r *Registry) Activate(id ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.lookupLocked(id)
	if err != nil {
		return false, err
	}
	if t.Active() {
		return false, nil
	}
	r.activateLocked(id, t, r.clock.Now())
	return true, nil
}

// Deactivate disarms the reminder. It reports whether the state changed.
func (r *Registry) Deactivate(id ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.lookupLocked(id)
	if err != nil {
		return false, err
	}
	return r.deactivateLocked(id, t), nil
}

// Get returns the projection of a single reminder.
func (r *Registry) Get(id ID) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.lookupLocked(id)
	if err != nil {
		return Entry{}, err
	}
	return r.entryLocked(id, t, r.clock.Now()), nil
}

// List returns all reminders in insertion order.
func (r *Registry) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	out := make([]Entry, 0, len(r.timers))
	for i, t := range r.timers {
		out = append(out, r.entryLocked(ID(i+1), t, now))
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Evaluate runs one tick: every active timer is evaluated against now and
// each positive result is emitted. It returns the number of fires.
func (r *Registry) Evaluate(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i, t := range r.timers {
		// Timers deactivated before this tick took the lock are skipped here.
		if !t.Active() {
			continue
		}
		if t.Evaluate(now) {
			r.emitLocked(ID(i+1), t, now)
			n++
		}
	}
	return n
}

// Live reports whether h is the current activation handle of id.
func (r *Registry) Live(id ID, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.handles[id]
	return ok && cur == h
}

func (r *Registry) lookupLocked(id ID) (*Timer, error) {
	if id < 1 || int(id) > len(r.timers) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return r.timers[id-1], nil
}

func (r *Registry) activateLocked(id ID, t *Timer, now time.Time) {
	fire := t.Activate(now)
	r.seq++
	r.handles[id] = r.seq
	r.publish(eventbus.ReminderActivated, Event{ID: id, Name: t.Name(), Label: t.Schedule().Label(), Active: true, At: now})
	if fire {
		r.emitLocked(id, t, now)
	}
}

func (r *Registry) deactivateLocked(id ID, t *Timer) bool {
	if !t.Deactivate() {
		return false
	}
	delete(r.handles, id)
	r.publish(eventbus.ReminderDeactivated, Event{ID: id, Name: t.Name(), Label: t.Schedule().Label(), At: r.clock.Now()})
	return true
}

func (r *Registry) emitLocked(id ID, t *Timer, now time.Time) {
	h := r.handles[id]
	f := Fire{
		ReminderID: id,
		Name:       t.Name(),
		Label:      t.Schedule().Label(),
		Handle:     h,
		At:         now,
		live:       func() bool { return r.Live(id, h) },
	}
	r.publish(eventbus.ReminderFired, Event{ID: id, Name: f.Name, Label: f.Label, Active: true, At: now})
	if r.onFire != nil {
		r.onFire(f)
	}
}

func (r *Registry) entryLocked(id ID, t *Timer, now time.Time) Entry {
	return Entry{
		ID:      id,
		Name:    t.Name(),
		Label:   t.Schedule().Label(),
		Kind:    t.Schedule().Kind(),
		Active:  t.Active(),
		NextDue: t.NextDue(now),
	}
}

func (r *Registry) publish(typ string, ev Event) {
	r.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
}
