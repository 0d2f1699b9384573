package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("86")  // Cyan
	colorSecondary = lipgloss.Color("240") // Gray
	colorSuccess   = lipgloss.Color("82")  // Green
	colorWarning   = lipgloss.Color("214") // Orange
	colorDanger    = lipgloss.Color("196") // Red
	colorMuted     = lipgloss.Color("245") // Light gray
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Underline(true)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary)

	progressBarEmptyStyle = lipgloss.NewStyle().
				Foreground(colorSecondary)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary).
				BorderBottom(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colorSecondary)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	speedTestMarkStyle = lipgloss.NewStyle().
				Foreground(colorWarning)

	// Notification panel
	notificationStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1).
				Width(44)

	notificationTitleStyle = lipgloss.NewStyle().
				Bold(true)
)

// getProgressColor returns color based on usage percentage
func getProgressColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 90:
		return colorDanger
	case percent >= 70:
		return colorWarning
	default:
		return colorSuccess
	}
}

// getBatteryColor inverts the usage thresholds: a low charge is the
// warning state.
func getBatteryColor(percent float64) lipgloss.Color {
	switch {
	case percent < 20:
		return colorDanger
	case percent < 40:
		return colorWarning
	default:
		return colorSuccess
	}
}

func notificationColor(kind NotificationKind) lipgloss.Color {
	switch kind {
	case NotificationError:
		return colorDanger
	case NotificationSuccess:
		return colorSuccess
	default:
		return colorPrimary
	}
}
