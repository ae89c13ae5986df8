package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// addSubmitMsg carries the raw form values; the registry validates them.
type addSubmitMsg struct {
	Name     string
	Schedule string
}

type addCancelMsg struct{}

// addForm collects a reminder name and schedule. It stays open after submit
// so a rejected input can be corrected; the model closes it on success.
type addForm struct {
	name     textinput.Model
	schedule textinput.Model
	focus    int
	visible  bool
}

func newAddForm() addForm {
	name := textinput.New()
	name.Prompt = "Name:     "
	name.Placeholder = "Stretch"
	name.CharLimit = 128

	sched := textinput.New()
	sched.Prompt = "Schedule: "
	sched.Placeholder = "30 or 09:30"
	sched.CharLimit = 16

	return addForm{name: name, schedule: sched}
}

func (f addForm) Visible() bool { return f.visible }

func (f *addForm) Open() tea.Cmd {
	f.visible = true
	f.name.SetValue("")
	f.schedule.SetValue("")
	f.focus = 0
	f.schedule.Blur()
	return f.name.Focus()
}

func (f *addForm) Close() {
	f.visible = false
	f.name.Blur()
	f.schedule.Blur()
}

func (f *addForm) switchFocus() tea.Cmd {
	f.focus = 1 - f.focus
	if f.focus == 0 {
		f.schedule.Blur()
		return f.name.Focus()
	}
	f.name.Blur()
	return f.schedule.Focus()
}

func (f addForm) Update(msg tea.Msg) (addForm, tea.Cmd) {
	if !f.visible {
		return f, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			f.Close()
			return f, func() tea.Msg { return addCancelMsg{} }
		case "tab", "shift+tab", "up", "down":
			return f, f.switchFocus()
		case "enter":
			if f.focus == 0 {
				return f, f.switchFocus()
			}
			out := addSubmitMsg{Name: f.name.Value(), Schedule: f.schedule.Value()}
			return f, func() tea.Msg { return out }
		}
	}
	var cmd tea.Cmd
	if f.focus == 0 {
		f.name, cmd = f.name.Update(msg)
	} else {
		f.schedule, cmd = f.schedule.Update(msg)
	}
	return f, cmd
}

func (f addForm) View(width int) string {
	if !f.visible {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("New reminder") + "\n")
	sb.WriteString(f.name.View() + "\n")
	sb.WriteString(f.schedule.View() + "\n")
	sb.WriteString(mutedStyle.Render("minutes or HH:MM  ·  enter: next/save  esc: cancel"))
	w := min(width-2, 60)
	if w < 30 {
		w = 60
	}
	return formStyle.Width(w).Render(sb.String())
}
