package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nudge/internal/clock"
	"nudge/internal/eventbus"
	"nudge/internal/reminder"
)

var t0 = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

type fakeLogs []string

func (f fakeLogs) Tail(n int) []string {
	if n > len(f) {
		n = len(f)
	}
	return append([]string(nil), f[len(f)-n:]...)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newTestModel(t *testing.T) (Model, *reminder.Registry) {
	t.Helper()
	clk := clock.NewManual(t0)
	reg := reminder.NewRegistry(reminder.WithClock(clk))
	return NewModel(reg, Options{Now: clk.Now}), reg
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press is send plus one round trip of the returned command, for keys whose
// command produces the form's result message.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ = m.Update(cmd())
	return next.(Model)
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = send(t, m, runes(string(r)))
	}
	return m
}

func TestAddFormCreatesReminder(t *testing.T) {
	t.Parallel()
	m, reg := newTestModel(t)

	m = send(t, m, runes("a"))
	if !m.form.Visible() {
		t.Fatal("form not opened")
	}
	m = typeText(t, m, "Stretch")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "30")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.form.Visible() {
		t.Fatalf("form still open, status %q", m.status)
	}
	list := reg.List()
	if len(list) != 1 || list[0].Name != "Stretch" || list[0].Label != "30 min" || list[0].Active {
		t.Fatalf("unexpected registry %+v", list)
	}
	if len(m.entries) != 1 {
		t.Fatalf("model entries = %d, want 1", len(m.entries))
	}
	if !strings.Contains(m.View(), "Stretch") {
		t.Fatal("view does not list the new reminder")
	}
}

func TestAddFormShowsValidationErrorVerbatim(t *testing.T) {
	t.Parallel()
	m, reg := newTestModel(t)

	m = send(t, m, runes("a"))
	m = typeText(t, m, "Tea")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = typeText(t, m, "25:00")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if reg.Len() != 0 {
		t.Fatal("invalid reminder was added")
	}
	_, want := reg.Add("Tea", "25:00")
	if !m.statusErr || m.status != want.Error() {
		t.Fatalf("status = %q, want %q", m.status, want.Error())
	}
	if !m.form.Visible() {
		t.Fatal("form closed after a rejected submit")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.form.Visible() {
		t.Fatal("esc did not close the form")
	}
}

func TestSpaceTogglesSelected(t *testing.T) {
	t.Parallel()
	m, reg := newTestModel(t)
	fires := 0
	reg.SetFireFunc(func(reminder.Fire) { fires++ })
	_, _ = reg.Add("One", "09:00")
	two, _ := reg.Add("Two", "5")
	m.refresh()

	m = send(t, m, runes("j"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	e, _ := reg.Get(two)
	if !e.Active {
		t.Fatal("space did not activate the selected reminder")
	}
	if fires != 1 {
		t.Fatalf("interval activation fired %d times, want 1", fires)
	}
	if !strings.Contains(m.View(), "10:05") {
		t.Fatalf("next due missing from view:\n%s", m.View())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if e, _ = reg.Get(two); e.Active {
		t.Fatal("second space did not deactivate")
	}
	if e, _ := reg.Get(1); e.Active {
		t.Fatal("unselected reminder changed")
	}
}

func TestBusEventsRefreshList(t *testing.T) {
	t.Parallel()
	m, reg := newTestModel(t)
	events := make(chan eventbus.Event, 1)
	m.events = events

	_, _ = reg.Add("Water", "45")
	events <- eventbus.Event{Type: eventbus.ReminderAdded}

	cmd := m.waitEvent()
	next, _ := m.Update(cmd())
	m = next.(Model)
	if len(m.entries) != 1 {
		t.Fatalf("entries = %d after event, want 1", len(m.entries))
	}

	next, _ = m.Update(busMsg{Type: eventbus.ReminderFired, Data: reminder.Event{ID: 1, Name: "Water", At: t0}})
	m = next.(Model)
	if !strings.Contains(m.status, "fired Water") {
		t.Fatalf("status = %q", m.status)
	}

	close(events)
	next, _ = m.Update(m.waitEvent()())
	if next.(Model).events != nil {
		t.Fatal("closed event stream not released")
	}
}

func TestLogPaneShowsTail(t *testing.T) {
	t.Parallel()
	reg := reminder.NewRegistry()
	m := NewModel(reg, Options{Logs: fakeLogs{"first line", "second line"}})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)
	if v := m.View(); !strings.Contains(v, "second line") {
		t.Fatalf("log tail missing from view:\n%s", v)
	}
	m = send(t, m, runes("l"))
	if strings.Contains(m.View(), "second line") {
		t.Fatal("log pane not hidden")
	}
}

func TestQuitKey(t *testing.T) {
	t.Parallel()
	m, _ := newTestModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"longer name", 6, "longe…"},
		{"x", 0, "x"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
