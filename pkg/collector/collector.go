// Package collector drives the incremental scroll loop over one list of a
// profile: the timeline (posts and reposts) or a followers/following list.
//
// Each cycle enumerates rendered candidates, resolves a stable identity for
// each, extracts the unseen ones, evaluates the stop rules and scrolls. The
// loop state is owned by a single call to Run and never shared.
package collector

import (
	"context"
	"errors"
	"time"

	"xscraper/pkg/extract"
	"xscraper/pkg/logger"
	"xscraper/pkg/models"
	"xscraper/pkg/page"
	"xscraper/pkg/retry"
)

// State is the mutable loop state of one traversal
type State struct {
	Processed        map[string]struct{}
	ScrollAttempts   int
	StaleStreak      int
	LastScrollHeight int
	Cycles           int

	Posts   []models.ContentItem
	Reposts []models.RepostItem
	Social  []models.SocialEntry
}

func newState() *State {
	return &State{
		Processed: make(map[string]struct{}),
		Posts:     []models.ContentItem{},
		Reposts:   []models.RepostItem{},
		Social:    []models.SocialEntry{},
	}
}

func (s *State) seen(id string) bool {
	_, ok := s.Processed[id]
	return ok
}

func (s *State) counts() Counts {
	return Counts{Posts: len(s.Posts), Reposts: len(s.Reposts), Social: len(s.Social)}
}

func (s *State) progress() Progress {
	return Progress{StaleStreak: s.StaleStreak, ScrollAttempts: s.ScrollAttempts}
}

// Outcome is what a traversal produced and why it ended
type Outcome struct {
	Kind           models.ListKind
	Reason         StopReason
	Posts          []models.ContentItem
	Reposts        []models.RepostItem
	Social         []models.SocialEntry
	Cycles         int
	ScrollAttempts int
	StaleStreak    int
	Elapsed        time.Duration
}

// Collected is the number of items accepted across all kinds
func (o *Outcome) Collected() int {
	return len(o.Posts) + len(o.Reposts) + len(o.Social)
}

// CycleStats is reported to observers after every cycle
type CycleStats struct {
	Identity       string
	Kind           models.ListKind
	Cycle          int
	Candidates     int
	Accepted       int
	Collected      int
	ScrollAttempts int
	StaleStreak    int
	Height         int
}

// Observer receives progress from the loop. Calls happen on the loop's
// goroutine.
type Observer interface {
	OnCycle(stats CycleStats)
	OnStop(stats CycleStats, reason StopReason)
}

// Collector runs traversals with a fixed extractor and pacing
type Collector struct {
	ex       *extract.Extractor
	settings Settings
	logger   logger.Logger
	observer Observer
	identity string
}

// Option configures a Collector
type Option func(*Collector)

// WithObserver attaches obs to every traversal
func WithObserver(obs Observer) Option {
	return func(c *Collector) { c.observer = obs }
}

// WithIdentity stamps every CycleStats with the profile being traversed
func WithIdentity(identity string) Option {
	return func(c *Collector) { c.identity = identity }
}

// WithLogger sets the logger
func WithLogger(lg logger.Logger) Option {
	return func(c *Collector) { c.logger = lg }
}

// New creates a collector
func New(ex *extract.Extractor, settings Settings, opts ...Option) *Collector {
	c := &Collector{
		ex:       ex,
		settings: settings,
		logger:   logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settings.ScrollSteps < 1 {
		c.settings.ScrollSteps = 1
	}
	return c
}

// verdict is the result of processing one candidate
type verdict int

const (
	skipped verdict = iota
	accepted
	boundary
)

// Run traverses kind on p, which must already show the list. It always
// returns an outcome. The error is non-nil only when ctx ended the loop,
// in which case the outcome holds what was accepted before cancellation.
func (c *Collector) Run(ctx context.Context, p page.Page, kind models.ListKind, limits Limits) (*Outcome, error) {
	start := time.Now()
	lg := c.logger.WithField("list", string(kind))
	st := newState()

	finish := func(reason StopReason, stats CycleStats) *Outcome {
		out := &Outcome{
			Kind:           kind,
			Reason:         reason,
			Posts:          st.Posts,
			Reposts:        st.Reposts,
			Social:         st.Social,
			Cycles:         st.Cycles,
			ScrollAttempts: st.ScrollAttempts,
			StaleStreak:    st.StaleStreak,
			Elapsed:        time.Since(start),
		}
		stats.Collected = out.Collected()
		if c.observer != nil {
			c.observer.OnStop(stats, reason)
		}
		logger.LogStop(lg, string(kind), string(reason), out.Collected(), out.Elapsed)
		return out
	}

	if limitsReached(kind, st.counts(), limits) {
		return finish(ReasonLimit, CycleStats{Kind: kind}), nil
	}

	st.LastScrollHeight = c.height(ctx, p, 0)

	for {
		if ctx.Err() != nil {
			return finish(ReasonCancelled, c.stats(kind, st, 0, 0)), ctx.Err()
		}
		st.Cycles++

		candidates := c.candidates(ctx, p, kind)
		acceptedThisCycle := 0
		hitBoundary := false

		for _, el := range candidates {
			if limitsReached(kind, st.counts(), limits) {
				break
			}
			v, err := c.process(ctx, p, kind, el, st, limits)
			if err != nil {
				return finish(ReasonCancelled, c.stats(kind, st, len(candidates), acceptedThisCycle)), err
			}
			if v == accepted {
				acceptedThisCycle++
			}
			if v == boundary {
				hitBoundary = true
				break
			}
		}

		stale := false
		if acceptedThisCycle > 0 {
			st.StaleStreak = 0
		} else {
			st.StaleStreak++
			stale = true
		}

		stats := c.stats(kind, st, len(candidates), acceptedThisCycle)
		if c.observer != nil {
			c.observer.OnCycle(stats)
		}
		logger.LogCollectionProgress(lg, string(kind), stats.Collected, st.ScrollAttempts, st.StaleStreak)

		if hitBoundary {
			return finish(ReasonStopDate, stats), nil
		}
		if reason, stop := Evaluate(kind, st.counts(), st.progress(), limits); stop {
			return finish(reason, stats), nil
		}

		stalled, err := c.scroll(ctx, p, st)
		if err != nil {
			return finish(ReasonCancelled, c.stats(kind, st, len(candidates), acceptedThisCycle)), err
		}
		if stalled && !stale {
			st.StaleStreak++
		}
	}
}

func (c *Collector) stats(kind models.ListKind, st *State, candidates, acceptedCount int) CycleStats {
	return CycleStats{
		Identity:       c.identity,
		Kind:           kind,
		Cycle:          st.Cycles,
		Candidates:     candidates,
		Accepted:       acceptedCount,
		Collected:      len(st.Posts) + len(st.Reposts) + len(st.Social),
		ScrollAttempts: st.ScrollAttempts,
		StaleStreak:    st.StaleStreak,
		Height:         st.LastScrollHeight,
	}
}

// candidates enumerates rendered items. A failed or timed out query counts
// as zero candidates.
func (c *Collector) candidates(ctx context.Context, p page.Page, kind models.ListKind) []page.Element {
	selector := c.ex.Selectors().Item
	if kind != models.ListTimeline {
		selector = c.ex.Selectors().SocialCell
	}
	qctx, cancel := c.bounded(ctx)
	defer cancel()
	els, err := p.QueryAll(qctx, selector)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.WithError(err).Debug("Candidate query failed")
		}
		return nil
	}
	return els
}

// process handles one candidate. Extraction reads happen before any state
// change, and a cancelled context is checked in between.
func (c *Collector) process(ctx context.Context, p page.Page, kind models.ListKind, el page.Element, st *State, limits Limits) (verdict, error) {
	if kind == models.ListTimeline {
		return c.processTimeline(ctx, p, el, st, limits)
	}
	return c.processSocial(ctx, p, kind, el, st, limits)
}

func (c *Collector) processTimeline(ctx context.Context, p page.Page, el page.Element, st *State, limits Limits) (verdict, error) {
	id, ok := c.ex.ResolveIdentity(ctx, p, el)
	if err := ctx.Err(); err != nil {
		return skipped, err
	}
	if !ok || st.seen(id) {
		return skipped, nil
	}

	if c.ex.IsRepost(ctx, p, el) {
		if limits.MaxReposts <= 0 || len(st.Reposts) >= limits.MaxReposts {
			if ctx.Err() != nil {
				return skipped, ctx.Err()
			}
			st.Processed[id] = struct{}{}
			return skipped, nil
		}
		item, ok := c.ex.Repost(ctx, p, el, id)
		if err := ctx.Err(); err != nil {
			return skipped, err
		}
		if !ok {
			return skipped, nil
		}
		st.Processed[id] = struct{}{}
		st.Reposts = append(st.Reposts, item)
		return accepted, nil
	}

	if limits.MaxPosts <= 0 || len(st.Posts) >= limits.MaxPosts {
		if ctx.Err() != nil {
			return skipped, ctx.Err()
		}
		st.Processed[id] = struct{}{}
		return skipped, nil
	}
	item, ok := c.ex.Content(ctx, p, el, id)
	if err := ctx.Err(); err != nil {
		return skipped, err
	}
	if !ok {
		return skipped, nil
	}
	if !limits.StopDate.IsZero() && c.ex.Dates().ReachedCutoff(item.PublishedAt, limits.StopDate) {
		st.Processed[id] = struct{}{}
		return boundary, nil
	}
	st.Processed[id] = struct{}{}
	st.Posts = append(st.Posts, item)
	return accepted, nil
}

func (c *Collector) processSocial(ctx context.Context, p page.Page, kind models.ListKind, el page.Element, st *State, limits Limits) (verdict, error) {
	id, ok := c.ex.ResolveSocialIdentity(ctx, p, el)
	if err := ctx.Err(); err != nil {
		return skipped, err
	}
	if !ok || st.seen(id) {
		return skipped, nil
	}
	if max := limits.socialLimit(kind); max <= 0 || len(st.Social) >= max {
		st.Processed[id] = struct{}{}
		return skipped, nil
	}
	entry, ok := c.ex.Social(ctx, p, el, kind.Role())
	if err := ctx.Err(); err != nil {
		return skipped, err
	}
	if !ok {
		return skipped, nil
	}
	st.Processed[id] = struct{}{}
	st.Social = append(st.Social, entry)
	return accepted, nil
}

// scroll issues the incremental steps and waits for the page to settle. It
// reports a stall when the height did not grow even after an aggressive
// jump to the bottom.
func (c *Collector) scroll(ctx context.Context, p page.Page, st *State) (bool, error) {
	st.ScrollAttempts++
	for i := 0; i < c.settings.ScrollSteps; i++ {
		c.evaluate(ctx, p, page.ScrollByScript(c.settings.ScrollStepPixels))
		if err := retry.Wait(ctx, c.settings.StepDelay); err != nil {
			return false, err
		}
	}
	if err := retry.Wait(ctx, c.settings.SettleDelay); err != nil {
		return false, err
	}

	h := c.height(ctx, p, st.LastScrollHeight)
	if h == st.LastScrollHeight {
		c.evaluate(ctx, p, page.ScrollToBottomScript)
		if err := retry.Wait(ctx, c.settings.SettleDelay); err != nil {
			return false, err
		}
		h = c.height(ctx, p, st.LastScrollHeight)
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	stalled := h == st.LastScrollHeight
	st.LastScrollHeight = h
	return stalled, nil
}

func (c *Collector) evaluate(ctx context.Context, p page.Page, script string) {
	ectx, cancel := c.bounded(ctx)
	defer cancel()
	if err := p.Evaluate(ectx, script, nil); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.WithError(err).Debug("Scroll script failed")
	}
}

// height reads the document height, returning fallback when it cannot
func (c *Collector) height(ctx context.Context, p page.Page, fallback int) int {
	hctx, cancel := c.bounded(ctx)
	defer cancel()
	var h int
	if err := p.Evaluate(hctx, page.ScrollHeightScript, &h); err != nil {
		return fallback
	}
	return h
}

func (c *Collector) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.settings.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.settings.QueryTimeout)
}
