package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"xscraper/pkg/collector"
	"xscraper/pkg/models"
	"xscraper/pkg/scraper"
)

// Display shows session progress. It receives loop progress as a
// collector.Observer and the scraper's state transitions through OnState.
type Display interface {
	collector.Observer
	OnState(identity string, from, to scraper.State)
}

// ProgressDisplay is a minimal line-oriented Display. In debug mode every
// cycle gets its own line.
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	limits  collector.Limits
	isDebug bool
	started map[string]time.Time
}

// NewProgressDisplay creates a display for sessions using limits
func NewProgressDisplay(out io.Writer, limits collector.Limits, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:     out,
		limits:  limits,
		isDebug: debug,
		started: make(map[string]time.Time),
	}
}

// OnState prints session transitions
func (p *ProgressDisplay) OnState(identity string, from, to scraper.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch to {
	case scraper.StateSessionLoaded:
		p.started[identity] = time.Now()
		fmt.Fprintf(p.out, "%s @%s session loaded\n", Magenta("→"), identity)
	case scraper.StateProfileVerified:
		fmt.Fprintf(p.out, "%s @%s profile verified\n", Magenta("→"), identity)
	case scraper.StateAborted:
		fmt.Fprintf(p.out, "%s @%s aborted\n", Red("✗"), identity)
	case scraper.StateFinalized:
		elapsed := time.Since(p.started[identity])
		delete(p.started, identity)
		fmt.Fprintf(p.out, "%s @%s finished in %s\n", Green("✓"), identity, formatDuration(elapsed))
	default:
		if p.isDebug {
			fmt.Fprintf(p.out, "%s @%s %s → %s\n", Dim("•"), identity, from, to)
		}
	}
}

// OnCycle updates the progress line
func (p *ProgressDisplay) OnCycle(stats collector.CycleStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := p.progressLine(stats)
	if p.isDebug {
		fmt.Fprintf(p.out, "%s cycle %d • %d candidates • +%d\n", line, stats.Cycle, stats.Candidates, stats.Accepted)
		return
	}
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
}

// OnStop ends the progress line for a list
func (p *ProgressDisplay) OnStop(stats collector.CycleStats, reason collector.StopReason) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark := Green("✓")
	if reason == collector.ReasonCancelled {
		mark = Yellow("⚠")
	}
	if !p.isDebug {
		fmt.Fprintln(p.out)
	}
	fmt.Fprintf(p.out, "%s @%s %s: %d collected (%s)\n", mark, stats.Identity, stats.Kind, stats.Collected, reason)
}

func (p *ProgressDisplay) progressLine(stats collector.CycleStats) string {
	target := Target(p.limits, stats.Kind)
	line := fmt.Sprintf("%s %s %s %d/%d • scrolls %d",
		Cyan("@"+stats.Identity),
		stats.Kind,
		progressBar(stats.Collected, target, 20),
		stats.Collected,
		target,
		stats.ScrollAttempts,
	)
	if stats.StaleStreak > 0 {
		line += " • " + Yellow(fmt.Sprintf("stale %d/%d", stats.StaleStreak, p.limits.MaxStaleScrolls))
	}
	return line
}

// Target is the number of items a list is collected up to
func Target(limits collector.Limits, kind models.ListKind) int {
	switch kind {
	case models.ListFollowers:
		return limits.MaxFollowers
	case models.ListFollowing:
		return limits.MaxFollowing
	default:
		return limits.MaxPosts + limits.MaxReposts
	}
}

func progressBar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("━", filled) + strings.Repeat("─", width-filled) + "]"
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
