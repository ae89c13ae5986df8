package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nudge/internal/eventbus"
	kit "nudge/internal/transport"
	"nudge/pkg/logx"
)

type fakeSink struct {
	name string

	mu    sync.Mutex
	sent  []kit.Notification
	fails int // remaining failures before success
	calls int
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Send(_ context.Context, n kit.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fails > 0 {
		f.fails--
		return errors.New("sink down")
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) count() (sent, calls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent), f.calls
}

func testConfig() Config {
	return Config{
		Enabled:       true,
		Workers:       1,
		QueueSize:     8,
		RatePerSec:    1000,
		RetryMax:      2,
		RetryBase:     time.Millisecond,
		RetryMaxDelay: 2 * time.Millisecond,
	}
}

func startService(t *testing.T, cfg Config, sinks ...kit.Sink) (*Service, <-chan eventbus.Event) {
	t.Helper()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(64, "notifier.")
	s := New(cfg, sinks, logx.Nop(), bus)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
		unsub()
	})
	return s, ch
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event, typ string) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ {
				return ev.Data.(Event)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func TestNotifyFansOutToAllSinks(t *testing.T) {
	t.Parallel()
	a, b := &fakeSink{name: "a"}, &fakeSink{name: "b"}
	s, ch := startService(t, testConfig(), a, b)

	if err := s.Notify(context.Background(), kit.Notification{ID: "f1", ReminderID: 1, Title: "Reminder!", Body: "Stretch"}); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := waitEvent(t, ch, eventbus.NotifierSent)
		if ev.ID != "f1" || ev.Body != "Stretch" {
			t.Fatalf("unexpected event %+v", ev)
		}
		got[ev.Sink] = true
	}
	if !got["a"] || !got["b"] {
		t.Fatalf("sinks reached = %v", got)
	}
	if n := len(s.Snapshot()); n != 2 {
		t.Fatalf("history len = %d, want 2", n)
	}
}

func TestNotifySkipsDeadNotifications(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{name: "a"}
	s, ch := startService(t, testConfig(), sink)

	n := kit.Notification{ID: "f1", Title: "t", Body: "b", Live: func() bool { return false }}
	if err := s.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	waitEvent(t, ch, eventbus.NotifierCancelled)
	if sent, calls := sink.count(); sent != 0 || calls != 0 {
		t.Fatalf("dead notification reached sink: sent=%d calls=%d", sent, calls)
	}
}

func TestNotifyRetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{name: "flaky", fails: 2}
	s, ch := startService(t, testConfig(), sink)

	if err := s.Notify(context.Background(), kit.Notification{ID: "f1", Title: "t", Body: "b"}); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	ev := waitEvent(t, ch, eventbus.NotifierSent)
	if ev.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", ev.Attempts)
	}
}

func TestNotifyReportsFailureWithoutBlocking(t *testing.T) {
	t.Parallel()
	broken := &fakeSink{name: "broken", fails: 100}
	ok := &fakeSink{name: "ok"}
	s, ch := startService(t, testConfig(), broken, ok)

	if err := s.Notify(context.Background(), kit.Notification{ID: "f1", Title: "t", Body: "b"}); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	ev := waitEvent(t, ch, eventbus.NotifierFailed)
	if ev.Sink != "broken" || ev.Error == "" || ev.Attempts != 3 {
		t.Fatalf("unexpected failure event %+v", ev)
	}
	if sent := waitEvent(t, ch, eventbus.NotifierSent); sent.Sink != "ok" {
		t.Fatalf("sent via %q, want ok", sent.Sink)
	}
}

func TestNotifyDedupsWithinWindow(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.DedupWindow = time.Minute
	sink := &fakeSink{name: "a"}
	s, ch := startService(t, cfg, sink)

	n := kit.Notification{ID: "f1", Key: "1:1:100", Title: "t", Body: "b"}
	_ = s.Notify(context.Background(), n)
	_ = s.Notify(context.Background(), n)
	other := n
	other.Key = "1:2:100"
	_ = s.Notify(context.Background(), other)

	counts := map[string]int{}
	deadline := time.After(2 * time.Second)
	for counts[eventbus.NotifierSent] < 2 {
		select {
		case ev := <-ch:
			counts[ev.Type]++
		case <-deadline:
			t.Fatalf("timed out, events so far %v", counts)
		}
	}
	if counts[eventbus.NotifierDeduped] != 1 || counts[eventbus.NotifierQueued] != 2 {
		t.Fatalf("events = %v", counts)
	}
}

func TestNotifyStateErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	n := kit.Notification{Title: "t"}

	disabled := New(Config{}, []kit.Sink{&fakeSink{name: "a"}}, logx.Nop(), nil)
	disabled.Start(ctx)
	if err := disabled.Notify(ctx, n); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled err = %v", err)
	}

	idle := New(testConfig(), []kit.Sink{&fakeSink{name: "a"}}, logx.Nop(), nil)
	if err := idle.Notify(ctx, n); !errors.Is(err, ErrStopped) {
		t.Fatalf("not started err = %v", err)
	}

	empty := New(testConfig(), nil, logx.Nop(), nil)
	empty.Start(ctx)
	defer empty.Stop(ctx)
	if err := empty.Notify(ctx, n); !errors.Is(err, ErrNoSinks) {
		t.Fatalf("no sinks err = %v", err)
	}
}

func TestStopDrainsQueue(t *testing.T) {
	t.Parallel()
	sink := &fakeSink{name: "a"}
	s := New(testConfig(), []kit.Sink{sink}, logx.Nop(), nil)
	s.Start(context.Background())
	for i := 0; i < 5; i++ {
		if err := s.Notify(context.Background(), kit.Notification{ReminderID: i, Title: "t"}); err != nil {
			t.Fatalf("Notify error: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)
	if sent, _ := sink.count(); sent != 5 {
		t.Fatalf("sent after drain = %d, want 5", sent)
	}
	if err := s.Notify(context.Background(), kit.Notification{Title: "late"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("after stop err = %v", err)
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()
	cfg := Config{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 6; attempt++ {
		d := retryDelay(cfg, attempt)
		if d <= 0 || d > cfg.RetryMaxDelay {
			t.Fatalf("retryDelay(%d) = %v out of bounds", attempt, d)
		}
	}
	if d := retryDelay(cfg, 1); d < 70*time.Millisecond || d > 130*time.Millisecond {
		t.Fatalf("retryDelay(1) = %v, want ~100ms", d)
	}
}
