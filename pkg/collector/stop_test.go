package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xscraper/pkg/models"
)

func TestEvaluate(t *testing.T) {
	limits := Limits{MaxPosts: 3, MaxReposts: 2, MaxFollowers: 4, MaxScrollAttempts: 10, MaxStaleScrolls: 3}

	tests := []struct {
		name     string
		kind     models.ListKind
		counts   Counts
		progress Progress
		limits   Limits
		want     StopReason
		stop     bool
	}{
		{"posts full reposts open", models.ListTimeline, Counts{Posts: 3}, Progress{}, limits, "", false},
		{"both full", models.ListTimeline, Counts{Posts: 3, Reposts: 2}, Progress{}, limits, ReasonLimit, true},
		{"reposts disabled", models.ListTimeline, Counts{Posts: 3}, Progress{}, Limits{MaxPosts: 3, MaxScrollAttempts: 1, MaxStaleScrolls: 1}, ReasonLimit, true},
		{"nothing requested", models.ListFollowing, Counts{}, Progress{}, limits, ReasonLimit, true},
		{"followers full", models.ListFollowers, Counts{Social: 4}, Progress{}, limits, ReasonLimit, true},
		{"limit beats stale", models.ListTimeline, Counts{Posts: 3, Reposts: 2}, Progress{StaleStreak: 5, ScrollAttempts: 20}, limits, ReasonLimit, true},
		{"stale beats budget", models.ListTimeline, Counts{}, Progress{StaleStreak: 3, ScrollAttempts: 10}, limits, ReasonStale, true},
		{"scroll budget", models.ListTimeline, Counts{}, Progress{StaleStreak: 1, ScrollAttempts: 10}, limits, ReasonScrollBudget, true},
		{"continue", models.ListFollowers, Counts{Social: 1}, Progress{StaleStreak: 2, ScrollAttempts: 9}, limits, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, stop := Evaluate(tt.kind, tt.counts, tt.progress, tt.limits)
			assert.Equal(t, tt.stop, stop)
			assert.Equal(t, tt.want, reason)
		})
	}
}

func TestLimitsWants(t *testing.T) {
	l := Limits{MaxPosts: 1, MaxFollowing: 2}
	assert.True(t, l.Wants(models.ListTimeline))
	assert.False(t, l.Wants(models.ListFollowers))
	assert.True(t, l.Wants(models.ListFollowing))
	assert.True(t, l.WantsSocial())
	assert.False(t, Limits{}.WantsSocial())
}
