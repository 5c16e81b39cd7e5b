package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"xscraper/pkg/checkpoint"
	"xscraper/pkg/logger"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/scraper"
	"xscraper/pkg/storage"
)

// Job is one identity to collect
type Job struct {
	Identity string
}

// Result is the outcome of one job
type Result struct {
	Job        Job
	RunID      string
	State      scraper.State
	Collected  int
	StopReason string
	Skipped    bool
	SkipReason string
	Error      error
	Duration   time.Duration
}

// Success reports whether the job ran to a finalized session without error
func (r Result) Success() bool {
	return !r.Skipped && r.Error == nil && r.State == scraper.StateFinalized
}

// Sessions runs one profile session
type Sessions interface {
	RunReport(ctx context.Context, identity string) (*scraper.Report, error)
}

// AttemptChecker reports identities whose output already counts as attempted
type AttemptChecker interface {
	IsAttempted(identity string) bool
}

// Ledger records attempts across batch runs
type Ledger interface {
	Begin(identity, runID string) error
	Finish(identity string, status checkpoint.Status, collected int, stopReason string, runErr error) error
	Exhausted(identity string, maxAttempts int) bool
}

// Pool runs sessions for queued identities on a fixed number of workers.
// Each session start waits on the limiter.
type Pool struct {
	numWorkers  int
	maxAttempts int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	sessions    Sessions
	attempts    AttemptChecker
	ledger      Ledger
	rateLimiter ratelimit.Limiter
	onResult    func(Result)
	logger      logger.Logger
}

// Option configures a Pool
type Option func(*Pool)

// WithLedger records every attempt in l and skips identities that
// exhausted maxAttempts
func WithLedger(l Ledger, maxAttempts int) Option {
	return func(p *Pool) {
		p.ledger = l
		p.maxAttempts = maxAttempts
	}
}

// WithAttemptChecker skips identities that already have an output document
func WithAttemptChecker(c AttemptChecker) Option {
	return func(p *Pool) { p.attempts = c }
}

// WithResultHook calls fn from Run for every result as it arrives
func WithResultHook(fn func(Result)) Option {
	return func(p *Pool) { p.onResult = fn }
}

// WithLogger sets the pool logger
func WithLogger(lg logger.Logger) Option {
	return func(p *Pool) { p.logger = lg }
}

// NewPool creates a pool of numWorkers workers. A nil limiter does not pace.
func NewPool(ctx context.Context, numWorkers int, sessions Sessions, limiter ratelimit.Limiter, opts ...Option) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		sessions:    sessions,
		rateLimiter: limiter,
		logger:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("Starting batch workers", map[string]interface{}{
		"num_workers": p.numWorkers,
	})
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes the result channel
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()
	p.logger.Info("Batch workers stopped")
}

// Cancel aborts running sessions. Stop must still be called.
func (p *Pool) Cancel() {
	p.cancel()
}

// Submit queues a job
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return errors.New("batch pool is shutting down")
	}
}

// Results returns the result channel
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if p.ctx.Err() != nil {
			// drain so Stop does not block on a full queue
			p.resultQueue <- Result{Job: job, Skipped: true, SkipReason: "cancelled", Error: p.ctx.Err()}
			continue
		}
		p.resultQueue <- p.process(job, id)
	}
}

func (p *Pool) process(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}
	lg := p.logger.WithFields(map[string]interface{}{
		"worker_id": workerID,
		"identity":  job.Identity,
	})

	if err := storage.ValidateIdentity(job.Identity); err != nil {
		result.Skipped, result.SkipReason, result.Error = true, "invalid identity", err
		lg.Warn("Skipping invalid identity")
		return result
	}
	if p.attempts != nil && p.attempts.IsAttempted(job.Identity) {
		result.Skipped, result.SkipReason = true, "already attempted"
		lg.Debug("Identity already attempted")
		return result
	}
	if p.ledger != nil && p.ledger.Exhausted(job.Identity, p.maxAttempts) {
		result.Skipped, result.SkipReason = true, "attempts exhausted"
		lg.Info("Identity exhausted its attempts")
		return result
	}

	if p.rateLimiter != nil && !p.rateLimiter.Allow() {
		lg.Debug("Waiting for rate limit")
		if err := p.rateLimiter.Wait(p.ctx); err != nil {
			result.Skipped, result.SkipReason, result.Error = true, "cancelled", err
			return result
		}
	}

	result.RunID = uuid.NewString()
	if p.ledger != nil {
		if err := p.ledger.Begin(job.Identity, result.RunID); err != nil {
			lg.WithError(err).Warn("Failed to record attempt")
		}
	}

	rep, err := p.sessions.RunReport(scraper.WithRunID(p.ctx, result.RunID), job.Identity)
	result.Error = err
	result.Duration = time.Since(start)
	if rep != nil {
		result.State = rep.State
		result.Collected = rep.Collected()
		result.StopReason = rep.StopReason()
	}

	if p.ledger != nil {
		if err := p.ledger.Finish(job.Identity, ledgerStatus(result), result.Collected, result.StopReason, result.Error); err != nil {
			lg.WithError(err).Warn("Failed to record outcome")
		}
	}

	if err != nil {
		lg.WithError(err).Error("Session failed")
	} else {
		lg.InfoWithFields("Session completed", map[string]interface{}{
			"collected": result.Collected,
			"duration":  result.Duration.Round(time.Millisecond).String(),
		})
	}
	return result
}

func ledgerStatus(r Result) checkpoint.Status {
	switch {
	case r.State == scraper.StateAborted:
		return checkpoint.StatusAborted
	case r.Error != nil:
		return checkpoint.StatusFailed
	default:
		return checkpoint.StatusDone
	}
}

// Run collects every identity and returns the results in completion order
func Run(ctx context.Context, p *Pool, identities []string) ([]Result, error) {
	p.Start()

	go func() {
		defer p.Stop()
		for _, id := range identities {
			if err := p.Submit(Job{Identity: id}); err != nil {
				return
			}
		}
	}()

	results := make([]Result, 0, len(identities))
	for r := range p.Results() {
		if p.onResult != nil {
			p.onResult(r)
		}
		results = append(results, r)
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("batch interrupted: %w", err)
	}
	return results, nil
}

// Summary counts batch results
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Collected int
}

// Summarize tallies results
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Success():
			s.Succeeded++
		default:
			s.Failed++
		}
		s.Collected += r.Collected
	}
	return s
}
