package tui

import "github.com/charmbracelet/lipgloss"

var (
	colBar    = lipgloss.Color("#1f2335")
	colText   = lipgloss.Color("#c0caf5")
	colMuted  = lipgloss.Color("#737aa2")
	colAccent = lipgloss.Color("#7aa2f7")
	colOn     = lipgloss.Color("#9ece6a")
	colWarn   = lipgloss.Color("#e0af68")
	colErr    = lipgloss.Color("#f7768e")

	titleStyle  = lipgloss.NewStyle().Foreground(colAccent).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colMuted)
	onStyle     = lipgloss.NewStyle().Foreground(colOn).Bold(true)
	cursorStyle = lipgloss.NewStyle().Foreground(colWarn).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(colErr)
	barStyle    = lipgloss.NewStyle().Background(colBar).Foreground(colText)

	formStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colAccent).
			Padding(0, 1)

	logStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colMuted).
			Foreground(colMuted)
)
