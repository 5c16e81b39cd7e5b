package collector

import (
	"time"

	"xscraper/pkg/config"
	"xscraper/pkg/models"
)

// Limits bound one traversal. A zero item limit disables that kind.
type Limits struct {
	MaxPosts     int
	MaxReposts   int
	MaxFollowers int
	MaxFollowing int

	MaxScrollAttempts int
	MaxStaleScrolls   int

	// StopDate ends the timeline at the first item dated on or before it.
	// The zero time disables the rule.
	StopDate time.Time
}

// LimitsFromConfig reads the collection section
func LimitsFromConfig(c config.CollectionConfig) (Limits, error) {
	cutoff, _, err := c.Cutoff()
	if err != nil {
		return Limits{}, err
	}
	return Limits{
		MaxPosts:          c.MaxPosts,
		MaxReposts:        c.MaxReposts,
		MaxFollowers:      c.MaxFollowers,
		MaxFollowing:      c.MaxFollowing,
		MaxScrollAttempts: c.MaxScrollAttempts,
		MaxStaleScrolls:   c.MaxStaleScrolls,
		StopDate:          cutoff,
	}, nil
}

// WantsSocial reports whether any social list is requested
func (l Limits) WantsSocial() bool {
	return l.MaxFollowers > 0 || l.MaxFollowing > 0
}

// Wants reports whether kind has anything to collect
func (l Limits) Wants(kind models.ListKind) bool {
	if kind == models.ListTimeline {
		return l.MaxPosts > 0 || l.MaxReposts > 0
	}
	return l.socialLimit(kind) > 0
}

func (l Limits) socialLimit(kind models.ListKind) int {
	switch kind {
	case models.ListFollowers:
		return l.MaxFollowers
	case models.ListFollowing:
		return l.MaxFollowing
	}
	return 0
}

// Settings holds the pacing of the loop
type Settings struct {
	ScrollSteps      int
	ScrollStepPixels int
	QueryTimeout     time.Duration
	SettleDelay      time.Duration
	StepDelay        time.Duration
}

// SettingsFromConfig reads pacing from the collection and timeout sections
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ScrollSteps:      cfg.Collection.ScrollSteps,
		ScrollStepPixels: cfg.Collection.ScrollStepPixels,
		QueryTimeout:     cfg.Timeouts.Query,
		SettleDelay:      cfg.Timeouts.Settle,
		StepDelay:        cfg.Timeouts.Step,
	}
}
