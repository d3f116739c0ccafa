package ui

import "github.com/charmbracelet/lipgloss"

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	neonRed     = lipgloss.Color("#FF0000")
	dimWhite    = lipgloss.Color("#B0B0B0")
	brightWhite = lipgloss.Color("#FFFFFF")

	labelStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	textStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true)

	countStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(neonRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(neonOrange).
			Bold(true)

	highlightStyle = lipgloss.NewStyle().
			Foreground(neonMagenta).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Faint(true)
)

// SummaryStyle picks the colour of the summary line from the success ratio
func SummaryStyle(successful, total int) lipgloss.Style {
	switch {
	case total == 0 || successful == total:
		return successStyle
	case successful == 0:
		return errorStyle
	default:
		return warningStyle
	}
}
