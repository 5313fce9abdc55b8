package window

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#8BC34A")
	primary = lipgloss.Color("#2196F3")
	muted   = lipgloss.Color("240")
	danger  = lipgloss.Color("#e53935")
	warning = lipgloss.Color("#FFC107")
)

// Styles groups the lipgloss styles of the window
type Styles struct {
	Title     lipgloss.Style
	Info      lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Content   lipgloss.Style
	Input     lipgloss.Style
	Status    lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Help      lipgloss.Style
}

// DefaultStyles returns the window styles
func DefaultStyles() Styles {
	tab := lipgloss.NewStyle().Padding(0, 2).Foreground(muted)
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		Info:      lipgloss.NewStyle().Foreground(muted),
		Tab:       tab,
		ActiveTab: tab.Foreground(primary).Bold(true).Underline(true),
		Content:   lipgloss.NewStyle().Padding(0, 1),
		Input:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
		Status:    lipgloss.NewStyle().Foreground(accent),
		Error:     lipgloss.NewStyle().Foreground(danger),
		Warning:   lipgloss.NewStyle().Foreground(warning),
		Help:      lipgloss.NewStyle().Foreground(muted),
	}
}
