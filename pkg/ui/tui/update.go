package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"xscraper/pkg/collector"
	"xscraper/pkg/scraper"
)

// SessionQueuedMsg is sent when an identity is queued
type SessionQueuedMsg struct {
	Identity string
}

// SessionStateMsg is sent on every session transition
type SessionStateMsg struct {
	Identity string
	From     scraper.State
	To       scraper.State
}

// CycleMsg carries one collection cycle
type CycleMsg struct {
	Stats collector.CycleStats
}

// ListStopMsg is sent when a list traversal ends
type ListStopMsg struct {
	Stats  collector.CycleStats
	Reason collector.StopReason
}

// SessionDoneMsg is sent when a session returned
type SessionDoneMsg struct {
	Identity  string
	Collected int
	Error     error
}

// PacingUpdateMsg updates the session pacing gauge
type PacingUpdateMsg struct {
	Used    int
	Max     int
	ResetAt time.Time
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tea.Batch(tickCmd(), m.spinner.Tick)

	case SessionQueuedMsg:
		m.QueueSession(msg.Identity)
		return m, nil

	case SessionStateMsg:
		m.SetState(msg.Identity, msg.To)
		switch msg.To {
		case scraper.StateSessionLoaded:
			m.AddLogMessage("INFO", "@"+msg.Identity+" session loaded")
		case scraper.StateProfileVerified:
			m.AddLogMessage("INFO", "@"+msg.Identity+" profile verified")
		case scraper.StateAborted:
			m.AddLogMessage("ERROR", "@"+msg.Identity+" aborted")
		}
		return m, nil

	case CycleMsg:
		m.UpdateList(msg.Stats)
		return m, nil

	case ListStopMsg:
		m.StopList(msg.Stats, msg.Reason)
		level := "SUCCESS"
		if msg.Reason == collector.ReasonCancelled {
			level = "WARN"
		}
		m.AddLogMessage(level, fmt.Sprintf("@%s %s: %d (%s)", msg.Stats.Identity, msg.Stats.Kind, msg.Stats.Collected, msg.Reason))
		return m, nil

	case SessionDoneMsg:
		m.FinishSession(msg.Identity, msg.Error)
		if msg.Error != nil {
			m.AddLogMessage("ERROR", "@"+msg.Identity+": "+msg.Error.Error())
		} else {
			m.AddLogMessage("SUCCESS", fmt.Sprintf("@%s done, %d items", msg.Identity, msg.Collected))
		}
		return m, nil

	case PacingUpdateMsg:
		m.UpdatePacing(msg.Used, msg.Max, msg.ResetAt)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
