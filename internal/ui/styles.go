package ui

import "github.com/charmbracelet/lipgloss"

var (
	accent     = lipgloss.Color("#2BB3A3")
	accentSoft = lipgloss.Color("#7FD8CC")
	muted      = lipgloss.Color("#6B7280")
	danger     = lipgloss.Color("#FF4757")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginTop(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(muted).
			MarginBottom(1)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	CheckedStyle = lipgloss.NewStyle().
			Foreground(accentSoft).
			Bold(true)

	DisabledStyle = lipgloss.NewStyle().
			Foreground(muted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(danger).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(accentSoft).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(muted).
			MarginTop(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)

	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0B0F14")).
			Background(accent).
			Padding(0, 1)

	TabStyle = lipgloss.NewStyle().
			Foreground(accentSoft).
			Padding(0, 1)

	FailedTabStyle = lipgloss.NewStyle().
			Foreground(danger).
			Padding(0, 1)

	// SeriesStyles colour the bars of the first and second chart series.
	SeriesStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(accent),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D")),
	}
)
