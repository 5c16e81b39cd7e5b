package extract

import (
	"strings"
	"time"
)

// DateRule parses item dates and decides whether a cutoff has been reached
type DateRule struct {
	// Formats are tried in order
	Formats []string
	// Now supplies the year for formats that omit it. Defaults to time.Now.
	Now func() time.Time
}

// Parse tries each format in turn. Layouts without a year take the current
// year from Now.
func (r DateRule) Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range r.Formats {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "2006") {
			now := time.Now
			if r.Now != nil {
				now = r.Now
			}
			t = time.Date(now().Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		}
		return t, true
	}
	return time.Time{}, false
}

// ReachedCutoff reports whether raw falls on or before the cutoff day.
// Dates are compared by calendar day in UTC. An unparseable date never
// reaches the cutoff.
func (r DateRule) ReachedCutoff(raw string, cutoff time.Time) bool {
	t, ok := r.Parse(raw)
	if !ok {
		return false
	}
	return !day(t).After(day(cutoff))
}

func day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
