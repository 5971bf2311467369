package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the model.
type Styles struct {
	Title   lipgloss.Style
	Route   lipgloss.Style
	Answer  lipgloss.Style
	Source  lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() *Styles {
	return &Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).MarginBottom(1),
		Route:   lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Answer:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#45475A")).Padding(0, 1),
		Source:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Italic(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	}
}
