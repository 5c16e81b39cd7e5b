package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{m.renderLogo()}
	sections = append(sections, lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderLeftColumn(),
		"  ",
		m.renderRightColumn(),
	))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo() string {
	return logoStyle.Width(m.width).Render("x s c r a p e r  ·  profile collection")
}

func (m *Model) renderLeftColumn() string {
	width := (m.width - 4) / 2
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderActivePanel(width),
		m.renderQueuePanel(width),
	)
}

func (m *Model) renderRightColumn() string {
	width := (m.width - 4) / 2
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderPacingPanel(width),
		m.renderLogsPanel(width),
	)
}

func panel(width int, title string, content ...string) string {
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(" " + title + " ")}, content...)...),
	)
}

func stat(label, value string) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(label), valueStyle.Render(value))
}

func (m *Model) renderStatsPanel(width int) string {
	rate, eta := m.GetStats()

	m.mu.RLock()
	lines := []string{
		stat("Elapsed:", formatDuration(time.Since(m.startTime))),
		stat("Sessions finished:", fmt.Sprintf("%d", m.finished)),
		stat("Items collected:", fmt.Sprintf("%d", m.totalCollected)),
		stat("Rate:", fmt.Sprintf("%.1f items/min", rate)),
		stat("ETA:", formatDuration(eta)),
	}
	if m.failed > 0 {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("✗ %d failed", m.failed)))
	}
	m.mu.RUnlock()

	return panel(width, "STATS", lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderActivePanel(width int) string {
	active := m.GetActiveSessions()
	if len(active) == 0 {
		return panel(width, "ACTIVE SESSIONS", dimStyle.Render("No active sessions"))
	}

	var rows []string
	for _, s := range active {
		rows = append(rows, m.renderSession(s, width-4))
	}
	return panel(width, "ACTIVE SESSIONS", lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderSession(s *SessionItem, width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	header := fmt.Sprintf("%s %s %s",
		m.spinner.View(),
		activeItemStyle.Render("@"+s.Identity),
		StateStyle(string(s.State)).Render(string(s.State)),
	)
	lines := []string{header}

	for _, kind := range s.ListOrder {
		l := s.Lists[kind]
		bar, ok := m.progressBars[barKey(s.Identity, kind)]
		if !ok {
			continue
		}
		bar.Width = width - 24
		if bar.Width < 10 {
			bar.Width = 10
		}

		ratio := 0.0
		if l.Target > 0 {
			ratio = float64(l.Collected) / float64(l.Target)
		}
		if ratio > 1 {
			ratio = 1
		}

		info := fmt.Sprintf("%-10s %d/%d", kind, l.Collected, l.Target)
		if l.StaleStreak > 0 && !l.Done {
			info += warningStyle.Render(fmt.Sprintf(" stale %d", l.StaleStreak))
		}
		if l.Done {
			info += dimStyle.Render(" " + string(l.Reason))
		}
		lines = append(lines, itemStyle.Render(info), itemStyle.Render(bar.ViewAs(ratio)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderQueuePanel(width int) string {
	queued := m.GetQueuedSessions()
	finished := m.GetFinishedSessions()

	var items []string
	if n := len(queued); n > 0 {
		items = append(items, warningStyle.Render(fmt.Sprintf("⏳ %d queued", n)))
		for i := 0; i < 3 && i < n; i++ {
			items = append(items, itemStyle.Render("• @"+queued[i].Identity))
		}
		if n > 3 {
			items = append(items, dimStyle.Render(fmt.Sprintf("  ... and %d more", n-3)))
		}
	}

	if n := len(finished); n > 0 {
		items = append(items, "", successStyle.Render(fmt.Sprintf("✓ %d finished", n)))
		start := n - 3
		if start < 0 {
			start = 0
		}
		for _, s := range finished[start:] {
			mark := "✓"
			if s.State == "aborted" || s.Error != nil {
				mark = "✗"
			}
			items = append(items, finishedItemStyle.Render(fmt.Sprintf("%s @%s %d items", mark, s.Identity, s.Collected())))
		}
	}

	if len(items) == 0 {
		items = append(items, dimStyle.Render("Queue empty"))
	}
	return panel(width, "QUEUE", lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m *Model) renderPacingPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.pacingMax <= 0 {
		return panel(width, "SESSION PACING", dimStyle.Render("Unpaced"))
	}

	usage := float64(m.pacingUsed) / float64(m.pacingMax) * 100
	barWidth := width - 8
	if barWidth < 1 {
		barWidth = 1
	}
	filled := int(usage * float64(barWidth) / 100)
	if filled > barWidth {
		filled = barWidth
	}
	style := PacingStyle(usage)
	bar := style.Render(strings.Repeat("█", filled)) + barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	resetIn := time.Until(m.pacingResetAt)
	if resetIn < 0 {
		resetIn = 0
	}

	return panel(width, "SESSION PACING",
		fmt.Sprintf("%s %s", labelStyle.Render("Window:"), style.Render(fmt.Sprintf("%d/%d (%.0f%%)", m.pacingUsed, m.pacingMax, usage))),
		bar,
		stat("Slot frees in:", formatDuration(resetIn)),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	maxLen := width - 25
	for _, log := range m.logMessages[start:] {
		msg := log.Message
		if maxLen > 3 && len(msg) > maxLen {
			msg = msg[:maxLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s",
			timestampStyle.Render(log.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level)),
			dimStyle.Render(msg),
		))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = dimStyle.Render("No logs yet...")
	}

	height := m.height - 35
	if height < 5 {
		height = 5
	}
	return panelStyle.Width(width).Height(height).Render(
		lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(" LOGS "), content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Quit
    ctrl+l   - Clear logs
    ?        - Toggle this help

  States:
    ` + warningStyle.Render("session_loaded") + `  - Session cookies installed
    ` + StateStyle("collecting").Render("collecting") + `      - Scrolling a list
    ` + successStyle.Render("finalized") + `       - Result persisted
    ` + errorStyle.Render("aborted") + `         - No usable session
`
	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
