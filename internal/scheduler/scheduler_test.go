package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nudge/internal/clock"
	"nudge/internal/eventbus"
	"nudge/internal/reminder"
	kit "nudge/internal/transport"
	"nudge/pkg/logx"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []kit.Notification
	fail error
}

func (r *recordingNotifier) Notify(_ context.Context, n kit.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.fail
}

func (r *recordingNotifier) all() []kit.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kit.Notification(nil), r.got...)
}

var start = time.Date(2024, 5, 6, 9, 29, 0, 0, time.UTC)

func newHarness(t *testing.T) (*Service, *reminder.Registry, *clock.Manual, *recordingNotifier) {
	t.Helper()
	clk := clock.NewManual(start)
	rec := &recordingNotifier{}
	d := NewDispatcher(Config{}, rec, logx.Nop())
	reg := reminder.NewRegistry(reminder.WithClock(clk), reminder.WithFireFunc(d.Fire))
	return New(Config{Enabled: true}, reg, clk, logx.Nop(), nil), reg, clk, rec
}

func TestDispatcherBuildsNotification(t *testing.T) {
	t.Parallel()
	_, reg, _, rec := newHarness(t)
	id, _ := reg.Add("Drink water", "5")
	reg.Toggle(id)

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	n := got[0]
	if n.Title != DefaultTitle || n.Body != "Drink water" || n.Timeout != DefaultTimeout {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.ReminderID != int(id) || n.ID == "" || n.Key == "" || !n.At.Equal(start) {
		t.Fatalf("unexpected identity fields %+v", n)
	}
	if !n.Wanted() {
		t.Fatal("notification should be wanted while active")
	}
	reg.Toggle(id)
	if n.Wanted() {
		t.Fatal("notification still wanted after deactivation")
	}
}

func TestDispatcherApplyAndSwallowErrors(t *testing.T) {
	t.Parallel()
	rec := &recordingNotifier{fail: errors.New("queue full")}
	d := NewDispatcher(Config{}, rec, logx.Nop())
	d.Apply(Config{Title: "Heads up", Timeout: 2 * time.Second})

	d.Fire(reminder.Fire{ReminderID: 1, Name: "Tea", At: start})
	got := rec.all()
	if len(got) != 1 || got[0].Title != "Heads up" || got[0].Timeout != 2*time.Second {
		t.Fatalf("unexpected notifications %+v", got)
	}
}

func TestTickDrivesIntervalReminder(t *testing.T) {
	t.Parallel()
	s, reg, clk, rec := newHarness(t)
	id, _ := reg.Add("Stretch", "5")
	reg.Toggle(id)

	for i := 0; i < 299; i++ {
		s.Tick(clk.Advance(time.Second))
	}
	if n := len(rec.all()); n != 1 {
		t.Fatalf("notifications before period = %d, want 1", n)
	}
	if fired := s.Tick(clk.Advance(time.Second)); fired != 1 {
		t.Fatalf("fires at period = %d, want 1", fired)
	}
	snap := s.Snapshot()
	if snap.Ticks != 300 || snap.Fires != 1 || !snap.LastTick.Equal(clk.Now()) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestTickClockTimeFiresOncePerDay(t *testing.T) {
	t.Parallel()
	s, reg, clk, rec := newHarness(t)
	id, _ := reg.Add("Standup", "09:30")
	reg.Toggle(id)

	for i := 0; i < 180; i++ {
		s.Tick(clk.Advance(time.Second))
	}
	if n := len(rec.all()); n != 1 {
		t.Fatalf("notifications over 3 minutes = %d, want 1", n)
	}
	clk.Set(start.AddDate(0, 0, 1).Add(time.Minute))
	s.Tick(clk.Now())
	if n := len(rec.all()); n != 2 {
		t.Fatalf("notifications next day = %d, want 2", n)
	}
}

func TestTickSkipsReminderDeactivatedBeforeTick(t *testing.T) {
	t.Parallel()
	s, reg, clk, rec := newHarness(t)
	a, _ := reg.Add("A", "1")
	b, _ := reg.Add("B", "1")
	reg.Toggle(a)
	reg.Toggle(b)
	reg.Toggle(a)

	s.Tick(clk.Advance(time.Minute))
	got := rec.all()
	if len(got) != 3 || got[2].ReminderID != int(b) {
		t.Fatalf("unexpected notifications %+v", got)
	}
}

func TestStartTicksWithCron(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4, eventbus.SchedulerTick)
	defer unsub()

	reg := reminder.NewRegistry()
	s := New(Config{Enabled: true, Tick: time.Second}, reg, nil, logx.Nop(), bus)
	s.Start(context.Background())
	defer s.Stop(context.Background())

	select {
	case ev := <-ch:
		if _, ok := ev.Data.(TickInfo); !ok {
			t.Fatalf("unexpected tick payload %#v", ev.Data)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no tick within 3s")
	}
	if !s.Snapshot().Running {
		t.Fatal("snapshot should report running")
	}
}

func TestApplyDisablesAndClampsTick(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true, Tick: 10 * time.Millisecond}, reminder.NewRegistry(), nil, logx.Nop(), nil)
	if got := s.Snapshot().Tick; got != MinTick {
		t.Fatalf("tick = %v, want %v", got, MinTick)
	}
	s.Start(context.Background())
	s.Apply(Config{Enabled: false})
	if s.Snapshot().Running {
		t.Fatal("disabled scheduler still running")
	}
	s.Stop(context.Background())

	disabled := New(Config{}, reminder.NewRegistry(), nil, logx.Nop(), nil)
	disabled.Start(context.Background())
	if disabled.Snapshot().Running {
		t.Fatal("Start should be a no-op when disabled")
	}
}
