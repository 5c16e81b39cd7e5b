package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"xscraper/pkg/collector"
	"xscraper/pkg/models"
	"xscraper/pkg/scraper"
)

// ListProgress is the live state of one list traversal
type ListProgress struct {
	Kind        models.ListKind
	Collected   int
	Target      int
	Scrolls     int
	StaleStreak int
	Reason      collector.StopReason
	Done        bool
}

// SessionItem is one identity on the dashboard
type SessionItem struct {
	Identity  string
	State     scraper.State
	Lists     map[models.ListKind]*ListProgress
	ListOrder []models.ListKind
	Queued    bool
	StartTime time.Time
	EndTime   time.Time
	Error     error
}

// Finished reports whether the session reached a terminal state
func (s *SessionItem) Finished() bool {
	return s.State == scraper.StateFinalized || s.State == scraper.StateAborted
}

// Collected sums every list of the session
func (s *SessionItem) Collected() int {
	n := 0
	for _, l := range s.Lists {
		n += l.Collected
	}
	return n
}

// Model is the dashboard state
type Model struct {
	spinner      spinner.Model
	progressBars map[string]progress.Model

	sessions      map[string]*SessionItem
	sessionOrder  []string
	targets       func(models.ListKind) int
	maxConcurrent int

	totalCollected int
	finished       int
	failed         int
	startTime      time.Time

	pacingUsed    int
	pacingMax     int
	pacingResetAt time.Time

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a dashboard for up to maxConcurrent sessions. targets
// gives the collection target of each list kind.
func NewModel(maxConcurrent int, targets func(models.ListKind) int) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	if targets == nil {
		targets = func(models.ListKind) int { return 0 }
	}
	return &Model{
		spinner:        s,
		progressBars:   make(map[string]progress.Model),
		sessions:       make(map[string]*SessionItem),
		targets:        targets,
		maxConcurrent:  maxConcurrent,
		startTime:      time.Now(),
		maxLogMessages: 50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) session(identity string) *SessionItem {
	s, ok := m.sessions[identity]
	if !ok {
		s = &SessionItem{
			Identity: identity,
			State:    scraper.StateUnauthenticated,
			Lists:    make(map[models.ListKind]*ListProgress),
		}
		m.sessions[identity] = s
		m.sessionOrder = append(m.sessionOrder, identity)
	}
	return s
}

// QueueSession adds an identity that has not started yet
func (m *Model) QueueSession(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(identity)
	if s.StartTime.IsZero() {
		s.Queued = true
	}
}

// SetState records a session transition
func (m *Model) SetState(identity string, state scraper.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(identity)
	if s.Queued || s.StartTime.IsZero() {
		s.Queued = false
		s.StartTime = time.Now()
	}
	s.State = state
	if s.Finished() {
		s.EndTime = time.Now()
	}
}

// UpdateList applies one cycle of a list traversal
func (m *Model) UpdateList(stats collector.CycleStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.list(stats.Identity, stats.Kind)
	m.totalCollected += stats.Collected - l.Collected
	l.Collected = stats.Collected
	l.Scrolls = stats.ScrollAttempts
	l.StaleStreak = stats.StaleStreak
}

// StopList marks a list traversal as ended
func (m *Model) StopList(stats collector.CycleStats, reason collector.StopReason) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.list(stats.Identity, stats.Kind)
	m.totalCollected += stats.Collected - l.Collected
	l.Collected = stats.Collected
	l.Reason = reason
	l.Done = true
}

func (m *Model) list(identity string, kind models.ListKind) *ListProgress {
	s := m.session(identity)
	l, ok := s.Lists[kind]
	if !ok {
		l = &ListProgress{Kind: kind, Target: m.targets(kind)}
		s.Lists[kind] = l
		s.ListOrder = append(s.ListOrder, kind)

		p := progress.New(progress.WithGradient(string(accent2), string(accent)))
		p.Width = 40
		m.progressBars[barKey(identity, kind)] = p
	}
	return l
}

func barKey(identity string, kind models.ListKind) string {
	return identity + "/" + string(kind)
}

// FinishSession records the end of a session
func (m *Model) FinishSession(identity string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session(identity)
	if s.EndTime.IsZero() {
		s.EndTime = time.Now()
	}
	s.Error = err
	m.finished++
	if err != nil {
		m.failed++
	}
}

// UpdatePacing records how many session slots are used in the window
func (m *Model) UpdatePacing(used, max int, resetAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pacingUsed = used
	m.pacingMax = max
	m.pacingResetAt = resetAt
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := muted
	switch level {
	case "ERROR":
		color = bad
	case "WARN":
		color = caution
	case "SUCCESS":
		color = good
	case "INFO":
		color = accent
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

func (m *Model) filter(keep func(*SessionItem) bool) []*SessionItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*SessionItem
	for _, id := range m.sessionOrder {
		if s := m.sessions[id]; s != nil && keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// GetActiveSessions returns started sessions that have not finished
func (m *Model) GetActiveSessions() []*SessionItem {
	return m.filter(func(s *SessionItem) bool { return !s.Queued && !s.Finished() })
}

// GetQueuedSessions returns sessions waiting to start
func (m *Model) GetQueuedSessions() []*SessionItem {
	return m.filter(func(s *SessionItem) bool { return s.Queued })
}

// GetFinishedSessions returns sessions in a terminal state
func (m *Model) GetFinishedSessions() []*SessionItem {
	return m.filter(func(s *SessionItem) bool { return s.Finished() })
}

// GetStats returns the collection rate in items per minute and the
// estimated time left for queued sessions
func (m *Model) GetStats() (itemsPerMinute float64, eta time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.startTime)
	if elapsed > 0 {
		itemsPerMinute = float64(m.totalCollected) / elapsed.Minutes()
	}

	queued := 0
	for _, s := range m.sessions {
		if s.Queued {
			queued++
		}
	}
	if m.finished > 0 && queued > 0 {
		perSession := elapsed / time.Duration(m.finished)
		workers := m.maxConcurrent
		if workers < 1 {
			workers = 1
		}
		eta = perSession * time.Duration(queued) / time.Duration(workers)
	}
	return itemsPerMinute, eta
}
