package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"xscraper/pkg/collector"
	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/extract"
	"xscraper/pkg/logger"
	"xscraper/pkg/models"
	"xscraper/pkg/page"
	"xscraper/pkg/retry"
	"xscraper/pkg/session"
)

// State of a session
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateSessionLoaded   State = "session_loaded"
	StateProfileVerified State = "profile_verified"
	StateCollecting      State = "collecting"
	StateFinalized       State = "finalized"
	StateAborted         State = "aborted"
)

// ErrSessionMissing is returned when no usable session artifact exists
var ErrSessionMissing = session.ErrSessionMissing

// Options wires the collaborators of a Scraper. Launch, Loader and Sink are
// required.
type Options struct {
	Launch    Launcher
	Loader    SessionLoader
	Sink      Sink
	Extractor *extract.Extractor
	Observer  collector.Observer
	Metrics   SessionMetrics
	Logger    logger.Logger
	// OnState is called on every state transition
	OnState func(identity string, from, to State)
}

// Report describes one finished session
type Report struct {
	RunID      string
	Identity   string
	State      State
	Result     *models.AggregateResult
	Outcomes   []*collector.Outcome
	Screenshot string
	Elapsed    time.Duration
}

// Collected is the number of list items in the result
func (r *Report) Collected() int {
	if r == nil || r.Result == nil {
		return 0
	}
	return len(r.Result.Posts) + len(r.Result.Reposts) + len(r.Result.Followers) + len(r.Result.Following)
}

// StopReason summarises why the timeline ended, or the first list that ran
func (r *Report) StopReason() string {
	if r == nil || len(r.Outcomes) == 0 {
		return ""
	}
	return string(r.Outcomes[0].Reason)
}

// Scraper runs profile sessions
type Scraper struct {
	opts     Options
	ex       *extract.Extractor
	settings collector.Settings
	limits   collector.Limits
	baseURL  string
	nav      config.NavigationConfig
	cleanup  time.Duration
	logger   logger.Logger
}

// New creates a Scraper from configuration
func New(cfg *config.Config, opts Options) (*Scraper, error) {
	if opts.Launch == nil || opts.Loader == nil || opts.Sink == nil {
		return nil, errors.New("scraper: launcher, session loader and sink are required")
	}
	limits, err := collector.LimitsFromConfig(cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("invalid collection limits: %w", err)
	}
	ex := opts.Extractor
	if ex == nil {
		if ex, err = extract.New(cfg.Extraction, cfg.Timeouts); err != nil {
			return nil, fmt.Errorf("failed to build extractor: %w", err)
		}
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.GetLogger()
	}

	return &Scraper{
		opts:     opts,
		ex:       ex,
		settings: collector.SettingsFromConfig(cfg),
		limits:   limits,
		baseURL:  cfg.Browser.BaseURL,
		nav:      cfg.Navigation,
		cleanup:  cfg.Timeouts.Cleanup,
		logger:   lg,
	}, nil
}

type runIDKey struct{}

// WithRunID makes the next session started with ctx use id as its run ID
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Limits returns the collection limits in effect
func (s *Scraper) Limits() collector.Limits {
	return s.limits
}

// Run collects identity and returns the persisted result
func (s *Scraper) Run(ctx context.Context, identity string) (*models.AggregateResult, error) {
	rep, err := s.RunReport(ctx, identity)
	return rep.Result, err
}

// run is the state of one session
type run struct {
	s         *Scraper
	identity  string
	report    *Report
	logger    logger.Logger
	collector *collector.Collector

	mu      sync.Mutex
	browser page.Browser
	pages   []page.Page
}

// RunReport collects identity and describes how the session went. The
// report is never nil.
func (s *Scraper) RunReport(ctx context.Context, identity string) (*Report, error) {
	start := time.Now()
	runID := runIDFrom(ctx)
	r := &run{
		s:        s,
		identity: identity,
		report: &Report{
			RunID:    runID,
			Identity: identity,
			State:    StateUnauthenticated,
			Result:   models.NewAggregateResult(),
		},
		logger: s.logger.WithFields(map[string]interface{}{
			"run_id":   runID,
			"identity": identity,
		}),
	}
	collectorOpts := []collector.Option{collector.WithLogger(r.logger), collector.WithIdentity(identity)}
	if s.opts.Observer != nil {
		collectorOpts = append(collectorOpts, collector.WithObserver(s.opts.Observer))
	}
	r.collector = collector.New(s.ex, s.settings, collectorOpts...)

	if s.opts.Metrics != nil {
		s.opts.Metrics.SessionStarted()
	}

	err := r.execute(ctx)

	r.release()
	if saveErr := s.opts.Sink.Save(identity, r.report.Result); saveErr != nil {
		r.logger.WithError(saveErr).Error("Failed to persist result")
		err = errors.Join(err, fmt.Errorf("persist result: %w", saveErr))
	}

	r.report.Elapsed = time.Since(start)
	if s.opts.Metrics != nil {
		s.opts.Metrics.SessionFinished(string(r.report.State), r.report.Elapsed)
	}
	r.logger.InfoWithFields("Session finished", map[string]interface{}{
		"state":     r.report.State,
		"collected": r.report.Collected(),
		"elapsed":   r.report.Elapsed.Round(time.Millisecond).String(),
	})
	return r.report, err
}

func (r *run) transition(to State) {
	from := r.report.State
	r.report.State = to
	logger.LogSessionState(r.logger, r.identity, string(from), string(to))
	if r.s.opts.OnState != nil {
		r.s.opts.OnState(r.identity, from, to)
	}
}

func (r *run) execute(ctx context.Context) error {
	artifact, err := r.s.opts.Loader.Load(ctx)
	if err != nil {
		r.transition(StateAborted)
		if !errors.Is(err, ErrSessionMissing) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrSessionMissing, err)
		}
		return err
	}
	r.transition(StateSessionLoaded)

	browser, err := r.s.opts.Launch(ctx)
	if err != nil {
		r.transition(StateFinalized)
		return errs.Transient("launch browser", err)
	}
	r.track(browser, nil)

	profile, err := r.openPage(ctx, browser, artifact, page.ProfileURL(r.s.baseURL, r.identity))
	if err != nil {
		r.transition(StateFinalized)
		return err
	}

	signal, ok := r.s.ex.Verified(ctx, profile)
	if !ok {
		if ctx.Err() != nil {
			r.transition(StateFinalized)
			return ctx.Err()
		}
		r.logger.Warn("Profile verification failed")
		r.captureScreenshot(ctx, profile)
		r.transition(StateFinalized)
		return nil
	}
	r.logger.WithField("signal", signal).Debug("Profile verified")
	r.transition(StateProfileVerified)

	r.report.Result.Profile = r.s.ex.Profile(ctx, profile)
	r.transition(StateCollecting)

	if r.s.limits.Wants(models.ListTimeline) {
		out, err := r.collector.Run(ctx, profile, models.ListTimeline, r.s.limits)
		r.merge(out)
		if err != nil {
			r.transition(StateFinalized)
			return err
		}
	}

	if r.s.limits.WantsSocial() {
		if err := r.collectSocial(ctx, browser, artifact); err != nil {
			r.transition(StateFinalized)
			return err
		}
	}

	r.transition(StateFinalized)
	return nil
}

// collectSocial walks followers then following on a second page. A list
// that fails to load is skipped.
func (r *run) collectSocial(ctx context.Context, browser page.Browser, artifact *session.Artifact) error {
	var social page.Page
	for _, kind := range []models.ListKind{models.ListFollowers, models.ListFollowing} {
		if !r.s.limits.Wants(kind) {
			continue
		}
		url := page.ListURL(r.s.baseURL, r.identity, kind)
		if social == nil {
			p, err := r.openPage(ctx, browser, artifact, url)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.WithError(err).WithField("list", string(kind)).Warn("Skipping list")
				continue
			}
			social = p
		} else if err := r.navigate(ctx, social, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.WithError(err).WithField("list", string(kind)).Warn("Skipping list")
			continue
		}

		out, err := r.collector.Run(ctx, social, kind, r.s.limits)
		r.merge(out)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *run) merge(out *collector.Outcome) {
	if out == nil {
		return
	}
	r.report.Outcomes = append(r.report.Outcomes, out)
	res := r.report.Result
	switch out.Kind {
	case models.ListTimeline:
		res.Posts = append(res.Posts, out.Posts...)
		res.Reposts = append(res.Reposts, out.Reposts...)
	case models.ListFollowers:
		res.Followers = append(res.Followers, out.Social...)
	case models.ListFollowing:
		res.Following = append(res.Following, out.Social...)
	}
}

// openPage creates a tab with the session cookies and navigates it
func (r *run) openPage(ctx context.Context, browser page.Browser, artifact *session.Artifact, url string) (page.Page, error) {
	p, err := browser.NewPage(ctx, artifact.Cookies)
	if err != nil {
		return nil, errs.Transient("open page", err)
	}
	r.track(nil, p)
	if err := r.navigate(ctx, p, url); err != nil {
		return nil, err
	}
	return p, nil
}

// navigate loads url with a per-attempt deadline and bounded retries
func (r *run) navigate(ctx context.Context, p page.Page, url string) error {
	cfg := &retry.Config{
		MaxAttempts: r.s.nav.MaxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: r.s.nav.RetryDelay},
		Logger:      r.logger,
	}
	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		navCtx, cancel := withTimeout(ctx, r.s.nav.Timeout)
		defer cancel()
		if err := p.Navigate(navCtx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errs.Transient("navigate", err)
		}
		return nil
	}, cfg)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (r *run) captureScreenshot(ctx context.Context, p page.Page) {
	shooter, ok := p.(page.Screenshotter)
	if !ok {
		return
	}
	sink, ok := r.s.opts.Sink.(ScreenshotSink)
	if !ok {
		return
	}
	shotCtx, cancel := withTimeout(ctx, r.s.nav.Timeout)
	defer cancel()
	data, err := shooter.Screenshot(shotCtx)
	if err != nil {
		r.logger.WithError(err).Debug("Screenshot failed")
		return
	}
	name, err := sink.SaveScreenshot(r.identity, bytes.NewReader(data))
	if err != nil {
		r.logger.WithError(err).Warn("Failed to save screenshot")
		return
	}
	r.report.Screenshot = name
	r.logger.WithField("file", name).Info("Saved verification screenshot")
}

func (r *run) track(b page.Browser, p page.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b != nil {
		r.browser = b
	}
	if p != nil {
		r.pages = append(r.pages, p)
	}
}

// release closes every page in parallel and then the browser. It runs on a
// fresh context so cancellation of the session does not skip it.
func (r *run) release() {
	r.mu.Lock()
	pages, browser := r.pages, r.browser
	r.pages, r.browser = nil, nil
	r.mu.Unlock()

	ctx, cancel := withTimeout(context.Background(), r.s.cleanup)
	defer cancel()

	var g errgroup.Group
	for _, p := range pages {
		p := p
		g.Go(func() error {
			return p.Close(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.WithError(errs.Resource("close page", err)).Warn("Page cleanup failed")
	}
	if browser != nil {
		if err := browser.Close(ctx); err != nil {
			r.logger.WithError(errs.Resource("close browser", err)).Warn("Browser cleanup failed")
		}
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
