package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"xscraper/pkg/collector"
	"xscraper/pkg/models"
	"xscraper/pkg/scraper"
	"xscraper/pkg/ui"
)

var _ ui.Display = (*TUI)(nil)

// TUI is the full-screen dashboard. It satisfies ui.Display so it can be
// wired as the scraper's observer and state hook.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a dashboard for up to maxConcurrent sessions
func NewTUI(maxConcurrent int, limits collector.Limits) *TUI {
	model := NewModel(maxConcurrent, func(kind models.ListKind) int {
		return ui.Target(limits, kind)
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	return &TUI{
		program: program,
		model:   model,
	}
}

// Start runs the dashboard until the user quits or Stop is called
func (t *TUI) Start() error {
	go func() {
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	_, err := t.program.Run()
	return err
}

// Stop quits the dashboard
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the dashboard
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Queue shows identity as waiting
func (t *TUI) Queue(identity string) {
	t.Send(SessionQueuedMsg{Identity: identity})
}

// OnState forwards a session transition
func (t *TUI) OnState(identity string, from, to scraper.State) {
	t.Send(SessionStateMsg{Identity: identity, From: from, To: to})
}

// OnCycle forwards one collection cycle
func (t *TUI) OnCycle(stats collector.CycleStats) {
	t.Send(CycleMsg{Stats: stats})
}

// OnStop forwards the end of a list traversal
func (t *TUI) OnStop(stats collector.CycleStats, reason collector.StopReason) {
	t.Send(ListStopMsg{Stats: stats, Reason: reason})
}

// Done records a returned session
func (t *TUI) Done(identity string, collected int, err error) {
	t.Send(SessionDoneMsg{Identity: identity, Collected: collected, Error: err})
}

// UpdatePacing updates the session pacing gauge
func (t *TUI) UpdatePacing(used, max int, resetAt time.Time) {
	t.Send(PacingUpdateMsg{Used: used, Max: max, ResetAt: resetAt})
}

// Log sends a log message to the dashboard
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
