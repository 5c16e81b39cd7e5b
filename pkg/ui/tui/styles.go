package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent   = lipgloss.Color("#1DA1F2")
	accent2  = lipgloss.Color("#794BC4")
	good     = lipgloss.Color("#17BF63")
	caution  = lipgloss.Color("#FFAD1F")
	bad      = lipgloss.Color("#E0245E")
	bg       = lipgloss.Color("#15202B")
	panelBg  = lipgloss.Color("#192734")
	muted    = lipgloss.Color("#8899A6")
	faintest = lipgloss.Color("#38444D")

	baseStyle = lipgloss.NewStyle().
			Background(bg).
			Foreground(muted)

	logoStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent2).
			Background(panelBg).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Background(accent2).
			Foreground(bg).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	successStyle = lipgloss.NewStyle().
			Foreground(good).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(caution).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(bad).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(muted)

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(faintest)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	activeItemStyle = lipgloss.NewStyle().
			Foreground(good).
			Bold(true).
			PaddingLeft(2)

	finishedItemStyle = lipgloss.NewStyle().
				Foreground(muted).
				Faint(true).
				PaddingLeft(2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#657786"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#657786")).
			Padding(1, 0, 0, 2)
)

// PacingStyle colours the session pacing gauge by usage percentage
func PacingStyle(usage float64) lipgloss.Style {
	switch {
	case usage >= 90:
		return lipgloss.NewStyle().Foreground(bad)
	case usage >= 70:
		return lipgloss.NewStyle().Foreground(caution)
	default:
		return lipgloss.NewStyle().Foreground(good)
	}
}

// StateStyle colours a session state label
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "finalized":
		return successStyle
	case "aborted":
		return errorStyle
	case "collecting":
		return lipgloss.NewStyle().Foreground(accent).Bold(true)
	default:
		return warningStyle
	}
}
