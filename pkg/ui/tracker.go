package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// BatchTracker counts finished sessions of a batch
type BatchTracker struct {
	mu        sync.Mutex
	Total     int
	Done      int
	Failed    int
	Skipped   int
	Collected int
	StartTime time.Time
}

// NewBatchTracker creates a tracker for total identities
func NewBatchTracker(total int) *BatchTracker {
	return &BatchTracker{Total: total, StartTime: time.Now()}
}

// Record counts one finished identity
func (t *BatchTracker) Record(collected int, skipped bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Done++
	switch {
	case skipped:
		t.Skipped++
	case err != nil:
		t.Failed++
	}
	t.Collected += collected
}

// Progress returns a progress bar for the batch
func (t *BatchTracker) Progress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	const width = 20
	filled := 0
	if t.Total > 0 {
		filled = t.Done * width / t.Total
	}
	if filled > width {
		filled = width
	}
	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, t.Done, t.Total)
}

// Rate returns finished sessions per minute
func (t *BatchTracker) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := time.Since(t.StartTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(t.Done) / elapsed
}

// PrintProgress prints the batch status line
func (t *BatchTracker) PrintProgress() {
	progress := t.Progress()
	t.mu.Lock()
	failed, skipped, collected := t.Failed, t.Skipped, t.Collected
	t.mu.Unlock()

	line := fmt.Sprintf("%s %s • %d items", Green("[BATCH]"), progress, collected)
	if skipped > 0 {
		line += " • " + Dim(fmt.Sprintf("%d skipped", skipped))
	}
	if failed > 0 {
		line += " • " + Red(fmt.Sprintf("%d failed", failed))
	}
	fmt.Fprintln(Output, line)
}
