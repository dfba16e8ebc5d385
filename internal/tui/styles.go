package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary = lipgloss.Color("#00D4FF") // Cyan
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorError   = lipgloss.Color("#EF4444") // Red
	colorMuted   = lipgloss.Color("#6B7280") // Gray
	colorDim     = lipgloss.Color("#4B5563") // Darker gray
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// Step styles
var (
	stepPendingStyle = lipgloss.NewStyle().
				Foreground(colorDim)

	stepActiveStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	stepDoneStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	stepErrorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	durationStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// Progress bar styles
var (
	barFilledStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

var (
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSuccess)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)
)
