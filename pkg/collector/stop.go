package collector

import "xscraper/pkg/models"

// StopReason says why a traversal ended
type StopReason string

const (
	ReasonLimit        StopReason = "limit"
	ReasonStopDate     StopReason = "stop_date"
	ReasonStale        StopReason = "stale"
	ReasonScrollBudget StopReason = "scroll_budget"
	ReasonCancelled    StopReason = "cancelled"
)

// Counts are the items accepted so far, per list
type Counts struct {
	Posts   int
	Reposts int
	Social  int
}

// Progress is the part of the loop state the stop rule reads
type Progress struct {
	StaleStreak    int
	ScrollAttempts int
}

// Evaluate decides whether the loop halts after a cycle. Checks run in
// order: limits for every collected kind, stale streak, scroll budget.
// The stop-date boundary is not evaluated here; it halts the loop as soon
// as a boundary item is seen.
func Evaluate(kind models.ListKind, counts Counts, progress Progress, limits Limits) (StopReason, bool) {
	if limitsReached(kind, counts, limits) {
		return ReasonLimit, true
	}
	if progress.StaleStreak >= limits.MaxStaleScrolls {
		return ReasonStale, true
	}
	if progress.ScrollAttempts >= limits.MaxScrollAttempts {
		return ReasonScrollBudget, true
	}
	return "", false
}

// limitsReached is true when every kind with a positive limit is full. A
// list with nothing to collect is trivially complete.
func limitsReached(kind models.ListKind, counts Counts, limits Limits) bool {
	switch kind {
	case models.ListTimeline:
		postsDone := limits.MaxPosts <= 0 || counts.Posts >= limits.MaxPosts
		repostsDone := limits.MaxReposts <= 0 || counts.Reposts >= limits.MaxReposts
		return postsDone && repostsDone
	default:
		max := limits.socialLimit(kind)
		return max <= 0 || counts.Social >= max
	}
}
