package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nudge/internal/clock"
	"nudge/internal/config"
	"nudge/internal/reminder"
	"nudge/internal/storage"
	"nudge/pkg/logx"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestAppSeedsFiresAndRecords(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nudge.yaml")
	logPath := filepath.Join(dir, "fires.jsonl")
	base := fmt.Sprintf(`
logging:
  level: debug
storage:
  driver: file
  path: %s
reminders:
  - name: Stretch
    schedule: "5"
    active: true
  - name: Standup
    schedule: "09:30"
`, logPath)
	writeConfig(t, cfgPath, base)

	clk := clock.NewManual(time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC))
	a, err := New(cfgPath, Options{Interactive: true, Clock: clk})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	list := a.Registry().List()
	if len(list) != 2 || !list[0].Active || list[1].Active || list[1].Label != "@09:30" {
		t.Fatalf("unexpected registry %+v", list)
	}

	// A reload appends new reminders and keeps existing ones.
	// The watcher starts asynchronously, so the write is repeated until seen.
	next := base + `  - name: Water
    schedule: "45"
`
	deadline := time.Now().Add(5 * time.Second)
	for i := 0; a.Registry().Len() != 3; i++ {
		if time.Now().After(deadline) {
			t.Fatalf("reload did not add reminder; have %d", a.Registry().Len())
		}
		if i%10 == 0 {
			writeConfig(t, cfgPath, next)
		}
		time.Sleep(50 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopUserQuit); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	st, err := storage.Open(storage.Config{Driver: "file", Path: logPath}, logx.Nop())
	if err != nil {
		t.Fatalf("open fire log: %v", err)
	}
	defer st.Close()
	recs, err := st.RecentFires(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentFires error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("fire log = %+v, want 1 record", recs)
	}
	r := recs[0]
	if r.Name != "Stretch" || r.Title != "Reminder!" || r.Sink != "log" || r.Status != storage.StatusSent || r.ReminderID != 1 {
		t.Fatalf("unexpected record %+v", r)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "nudge.json")
	writeConfig(t, cfgPath, `{"reminders":[{"name":"Task","schedule":"25:00"}]}`)
	if _, err := New(cfgPath, Options{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSeederAppendsOnlyNewPairs(t *testing.T) {
	t.Parallel()
	reg := reminder.NewRegistry()
	s := newSeeder(reg, logx.Nop())

	first := []config.ReminderConfig{
		{Name: "Tea", Schedule: "30"},
		{Name: "Tea", Schedule: "30"},
		{Name: "Lunch", Schedule: "12:00", Active: true},
	}
	if n := s.apply(first); n != 3 {
		t.Fatalf("first apply added %d, want 3", n)
	}
	if n := s.apply(first); n != 0 {
		t.Fatalf("repeat apply added %d, want 0", n)
	}
	second := append(first, config.ReminderConfig{Name: "Tea", Schedule: "30"}, config.ReminderConfig{Name: "Bad", Schedule: "0"})
	if n := s.apply(second); n != 1 {
		t.Fatalf("second apply added %d, want 1", n)
	}
	if got := reg.Len(); got != 4 {
		t.Fatalf("registry len = %d, want 4", got)
	}
	if e, _ := reg.Get(3); !e.Active {
		t.Fatal("active config reminder was not activated")
	}
}

func TestMapConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}

	sc, err := mapSchedulerConfig(cfg)
	if err != nil {
		t.Fatalf("mapSchedulerConfig error: %v", err)
	}
	if !sc.Enabled || sc.Tick != time.Second || sc.Title != "Reminder!" || sc.Timeout != 5*time.Second {
		t.Fatalf("scheduler defaults = %+v", sc)
	}

	nc, err := mapNotifierConfig(cfg)
	if err != nil || !nc.Enabled || nc.Workers != 2 {
		t.Fatalf("notifier defaults = %+v, %v", nc, err)
	}

	if _, enabled, err := mapStorageConfig(cfg); enabled || err != nil {
		t.Fatalf("storage should be disabled by default (%v)", err)
	}

	lc := mapLoggingConfig(&config.Config{Logging: config.LoggingConfig{Console: true}}, true)
	if lc.Console || lc.TailLines != 200 {
		t.Fatalf("interactive logging = %+v", lc)
	}

	if mapDebugConfig(cfg).Enabled {
		t.Fatal("debug server should be off by default")
	}

	sinks, err := buildSinks(cfg, logx.Nop())
	if err != nil || len(sinks) != 1 || sinks[0].Name() != "log" {
		t.Fatalf("fallback sinks = %v, %v", sinks, err)
	}
}

func TestMapNotifierConfigExplicitValues(t *testing.T) {
	t.Parallel()
	zero, off := 0, false
	tests := []struct {
		name        string
		in          *config.NotifierConfig
		wantEnabled bool
		wantRetry   int
		wantWorkers int
	}{
		{name: "section without enabled", in: &config.NotifierConfig{Workers: 4}, wantEnabled: true, wantRetry: 2, wantWorkers: 4},
		{name: "retries disabled", in: &config.NotifierConfig{RetryMax: &zero}, wantEnabled: true, wantRetry: 0, wantWorkers: 2},
		{name: "explicitly off", in: &config.NotifierConfig{Enabled: &off}, wantEnabled: false, wantRetry: 2, wantWorkers: 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			nc, err := mapNotifierConfig(&config.Config{Notifier: tt.in})
			if err != nil {
				t.Fatalf("mapNotifierConfig error: %v", err)
			}
			if nc.Enabled != tt.wantEnabled || nc.RetryMax != tt.wantRetry || nc.Workers != tt.wantWorkers {
				t.Fatalf("notifier config = %+v", nc)
			}
		})
	}
}

func TestOpenFireLogDisabled(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "nudge.yaml")
	writeConfig(t, cfgPath, "reminders: []\n")
	if _, err := OpenFireLog(cfgPath, logx.Nop()); !errors.Is(err, ErrNoFireLog) {
		t.Fatalf("err = %v, want ErrNoFireLog", err)
	}
}
