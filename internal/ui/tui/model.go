// Package tui is the interactive terminal front end: a reminder list with an
// add form, driven by registry state and bus events.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nudge/internal/eventbus"
	"nudge/internal/reminder"
)

// Reminders is the registry surface the UI drives.
type Reminders interface {
	List() []reminder.Entry
	Add(name, schedule string) (reminder.ID, error)
	Toggle(id reminder.ID) (bool, error)
}

// LogTail returns the most recent rendered log lines.
type LogTail interface {
	Tail(n int) []string
}

// Options configures a Model. Events and Logs are optional.
type Options struct {
	Events <-chan eventbus.Event
	Logs   LogTail
	Now    func() time.Time
}

type busMsg eventbus.Event

type busClosedMsg struct{}

type refreshMsg time.Time

const refreshEvery = time.Second

// Model is the root Bubble Tea model.
type Model struct {
	reg    Reminders
	events <-chan eventbus.Event
	logs   LogTail
	now    func() time.Time

	entries []reminder.Entry
	cursor  int

	keys     keyMap
	help     help.Model
	showHelp bool
	showLogs bool
	form     addForm

	status    string
	statusErr bool
	width     int
	height    int
}

func NewModel(reg Reminders, opts Options) Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := Model{
		reg:      reg,
		events:   opts.Events,
		logs:     opts.Logs,
		now:      now,
		keys:     defaultKeys(),
		help:     help.New(),
		form:     newAddForm(),
		showLogs: opts.Logs != nil,
		status:   "press a to add a reminder",
	}
	m.refresh()
	return m
}

// Run starts the program on the terminal and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitEvent(), refreshTick())
}

func (m Model) waitEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return busClosedMsg{}
		}
		return busMsg(ev)
	}
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m *Model) refresh() {
	m.entries = m.reg.List()
	if m.cursor >= len(m.entries) {
		m.cursor = max(len(m.entries)-1, 0)
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) selected() (reminder.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return reminder.Entry{}, false
	}
	return m.entries[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, refreshTick()

	case busMsg:
		m.handleEvent(eventbus.Event(msg))
		return m, m.waitEvent()

	case busClosedMsg:
		m.events = nil
		return m, nil

	case addSubmitMsg:
		id, err := m.reg.Add(msg.Name, msg.Schedule)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.form.Close()
		m.refresh()
		for i, e := range m.entries {
			if e.ID == id {
				m.cursor = i
			}
		}
		m.setStatus(fmt.Sprintf("added #%d %s (inactive, space to start)", id, strings.TrimSpace(msg.Name)), false)
		return m, nil

	case addCancelMsg:
		m.setStatus("add cancelled", false)
		return m, nil
	}

	// The form takes all other input while open.
	if m.form.Visible() {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.showHelp {
		if k.String() == "?" || k.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(k, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(k, m.keys.Help):
		m.showHelp = true
	case key.Matches(k, m.keys.Logs):
		m.showLogs = !m.showLogs && m.logs != nil
	case key.Matches(k, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(k, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case key.Matches(k, m.keys.Add):
		return m, m.form.Open()
	case key.Matches(k, m.keys.Toggle):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		active, err := m.reg.Toggle(e.ID)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.refresh()
		state := "stopped"
		if active {
			state = "started"
		}
		m.setStatus(fmt.Sprintf("%s %s", e.Name, state), false)
	}
	return m, nil
}

func (m *Model) handleEvent(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.ReminderAdded, eventbus.ReminderActivated, eventbus.ReminderDeactivated, eventbus.SchedulerTick:
		m.refresh()
	case eventbus.ReminderFired:
		m.refresh()
		if re, ok := ev.Data.(reminder.Event); ok {
			m.setStatus(fmt.Sprintf("fired %s at %s", re.Name, re.At.Format("15:04:05")), false)
		}
	case eventbus.NotifierFailed:
		m.setStatus("notification failed; see logs", true)
	}
}

func (m Model) View() string {
	header := barStyle.Width(max(m.width, 1)).Render(titleStyle.Render(" nudge ") + mutedStyle.Render(fmt.Sprintf(" %d reminders", len(m.entries))))

	var body string
	switch {
	case m.showHelp:
		body = m.help.FullHelpView(m.keys.FullHelp())
	case m.form.Visible():
		body = m.renderList() + "\n" + m.form.View(m.width)
	default:
		body = m.renderList()
	}

	status := m.status
	if m.statusErr {
		status = errStyle.Render(status)
	}
	footer := status + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())

	parts := []string{header, body}
	if m.showLogs && !m.showHelp {
		if pane := m.renderLogs(lipgloss.Height(header) + lipgloss.Height(body) + lipgloss.Height(footer)); pane != "" {
			parts = append(parts, pane)
		}
	}
	parts = append(parts, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderList() string {
	if len(m.entries) == 0 {
		return mutedStyle.Render("  no reminders yet")
	}
	now := m.now()
	var sb strings.Builder
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  %-4s %-24s %-9s %-6s %s", "ID", "NAME", "SCHEDULE", "STATE", "NEXT")))
	for i, e := range m.entries {
		sb.WriteString("\n")
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		state := mutedStyle.Render(fmt.Sprintf("%-6s", "off"))
		if e.Active {
			state = onStyle.Render(fmt.Sprintf("%-6s", "on"))
		}
		sb.WriteString(fmt.Sprintf("%s%-4d %-24s %-9s %s %s", prefix, e.ID, truncate(e.Name, 24), e.Label, state, formatNext(e, now)))
	}
	return sb.String()
}

func (m Model) renderLogs(used int) string {
	if m.logs == nil {
		return ""
	}
	n := 6
	if m.height > 0 {
		n = min(m.height-used-1, 12)
	}
	if n <= 0 {
		return ""
	}
	lines := m.logs.Tail(n)
	if len(lines) == 0 {
		return ""
	}
	w := m.width
	if w <= 0 {
		w = 80
	}
	for i, l := range lines {
		lines[i] = truncate(l, w)
	}
	return logStyle.Width(w).Render(strings.Join(lines, "\n"))
}

func formatNext(e reminder.Entry, now time.Time) string {
	if !e.Active || e.NextDue.IsZero() {
		return "-"
	}
	d := e.NextDue.Sub(now)
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%s (in %s)", e.NextDue.Format("15:04"), d.Truncate(time.Second))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
