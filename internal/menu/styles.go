package menu

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#89b4fa")
	colorText    = lipgloss.Color("#cdd6f4")
	colorSubtext = lipgloss.Color("#7f849c")
	colorError   = lipgloss.Color("#f38ba8")
	colorSuccess = lipgloss.Color("#a6e3a1")
	colorWarning = lipgloss.Color("#fab387")

	titleStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	itemStyle     = lipgloss.NewStyle().Foreground(colorText)
	selectedStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	descStyle     = lipgloss.NewStyle().Foreground(colorSubtext)
	hintStyle     = lipgloss.NewStyle().Foreground(colorSubtext)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle  = lipgloss.NewStyle().Foreground(colorWarning)
)
