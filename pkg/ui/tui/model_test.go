package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"xscraper/pkg/collector"
	"xscraper/pkg/models"
	"xscraper/pkg/scraper"
)

func targets(kind models.ListKind) int {
	if kind == models.ListTimeline {
		return 10
	}
	return 4
}

func TestModelSessionLifecycle(t *testing.T) {
	model := NewModel(2, targets)

	model.QueueSession("jack")
	model.QueueSession("biz")
	if got := len(model.GetQueuedSessions()); got != 2 {
		t.Errorf("Expected 2 queued sessions, got %d", got)
	}

	model.SetState("jack", scraper.StateSessionLoaded)
	if got := len(model.GetActiveSessions()); got != 1 {
		t.Errorf("Expected 1 active session, got %d", got)
	}

	model.UpdateList(collector.CycleStats{Identity: "jack", Kind: models.ListTimeline, Collected: 3, ScrollAttempts: 1})
	model.UpdateList(collector.CycleStats{Identity: "jack", Kind: models.ListTimeline, Collected: 7, ScrollAttempts: 2, StaleStreak: 1})
	l := model.sessions["jack"].Lists[models.ListTimeline]
	if l.Collected != 7 || l.Target != 10 || l.StaleStreak != 1 {
		t.Errorf("Unexpected list progress: %+v", l)
	}
	if model.totalCollected != 7 {
		t.Errorf("Expected 7 total collected, got %d", model.totalCollected)
	}

	model.StopList(collector.CycleStats{Identity: "jack", Kind: models.ListTimeline, Collected: 10}, collector.ReasonLimit)
	model.UpdateList(collector.CycleStats{Identity: "jack", Kind: models.ListFollowers, Collected: 2})
	if model.totalCollected != 12 {
		t.Errorf("Expected 12 total collected, got %d", model.totalCollected)
	}
	if got := model.sessions["jack"].ListOrder; len(got) != 2 || got[1] != models.ListFollowers {
		t.Errorf("Unexpected list order %v", got)
	}

	model.SetState("jack", scraper.StateFinalized)
	model.FinishSession("jack", nil)
	if got := len(model.GetFinishedSessions()); got != 1 {
		t.Errorf("Expected 1 finished session, got %d", got)
	}
	if model.sessions["jack"].Collected() != 12 {
		t.Errorf("Expected 12 collected for jack, got %d", model.sessions["jack"].Collected())
	}

	model.SetState("biz", scraper.StateAborted)
	model.FinishSession("biz", scraper.ErrSessionMissing)
	if model.failed != 1 || model.finished != 2 {
		t.Errorf("Expected 2 finished and 1 failed, got %d and %d", model.finished, model.failed)
	}
}

func TestModelLogsAreBounded(t *testing.T) {
	model := NewModel(1, nil)
	for i := 0; i < 60; i++ {
		model.AddLogMessage("INFO", "line")
	}
	if len(model.logMessages) != model.maxLogMessages {
		t.Errorf("Expected %d log messages, got %d", model.maxLogMessages, len(model.logMessages))
	}
	if model.logMessages[0].Color != accent {
		t.Errorf("Expected info colour")
	}
}

func TestUpdateMessages(t *testing.T) {
	m := NewModel(1, targets)

	m.Update(SessionQueuedMsg{Identity: "jack"})
	m.Update(SessionStateMsg{Identity: "jack", From: scraper.StateUnauthenticated, To: scraper.StateSessionLoaded})
	m.Update(CycleMsg{Stats: collector.CycleStats{Identity: "jack", Kind: models.ListTimeline, Collected: 5}})
	m.Update(ListStopMsg{Stats: collector.CycleStats{Identity: "jack", Kind: models.ListTimeline, Collected: 5}, Reason: collector.ReasonStale})
	m.Update(SessionDoneMsg{Identity: "jack", Error: errors.New("navigate failed")})
	m.Update(PacingUpdateMsg{Used: 1, Max: 2, ResetAt: time.Now().Add(time.Minute)})

	if m.pacingUsed != 1 || m.pacingMax != 2 {
		t.Errorf("Unexpected pacing %d/%d", m.pacingUsed, m.pacingMax)
	}
	if m.failed != 1 {
		t.Errorf("Expected the session to count as failed")
	}
	var levels []string
	for _, l := range m.logMessages {
		levels = append(levels, l.Level)
	}
	if strings.Join(levels, ",") != "INFO,SUCCESS,ERROR" {
		t.Errorf("Unexpected log levels %v", levels)
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}}); cmd != nil || !m.showHelp {
		t.Error("Expected ? to toggle help")
	}
}

func TestViewRenders(t *testing.T) {
	m := NewModel(1, targets)
	if m.View() != "Initializing..." {
		t.Error("Expected placeholder before the first resize")
	}

	m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	m.SetState("jack", scraper.StateCollecting)
	m.UpdateList(collector.CycleStats{Identity: "jack", Kind: models.ListTimeline, Collected: 4})

	out := m.View()
	for _, want := range []string{"@jack", "timeline", "4/10", "ACTIVE SESSIONS"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestModelIsSharedNotCopied(t *testing.T) {
	m := NewModel(1, targets)
	var tm tea.Model = m

	next, _ := tm.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if next != tm {
		t.Fatal("Expected Update to return the same model")
	}
	if m.width != 120 {
		t.Errorf("Expected the resize to reach the shared model, got width %d", m.width)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			m.QueueSession("jack")
			m.GetStats()
		}
	}()
	for i := 0; i < 100; i++ {
		_ = tm.View()
	}
	<-done
	if got := len(m.GetQueuedSessions()); got != 1 {
		t.Errorf("Expected 1 queued session, got %d", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{-time.Second, "00:00"},
		{75 * time.Second, "01:15"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "02:03:04"},
	}
	for _, test := range tests {
		if got := formatDuration(test.d); got != test.expected {
			t.Errorf("formatDuration(%v) = %s, expected %s", test.d, got, test.expected)
		}
	}
}
