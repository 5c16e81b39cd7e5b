package runner

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"xscraper/pkg/logger"
)

// scheduleParser accepts the standard 5-field format (minute hour dom month dow)
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether spec is a usable cron expression
func ValidateSchedule(spec string) error {
	if _, err := scheduleParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Scheduler repeats a batch on a cron schedule. A tick that fires while the
// previous batch is still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger logger.Logger
}

// NewScheduler creates an idle scheduler
func NewScheduler(lg logger.Logger) *Scheduler {
	if lg == nil {
		lg = logger.GetLogger()
	}
	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)
	return &Scheduler{cron: c, logger: lg}
}

// Run calls fn on every tick of spec until ctx is done, then waits for a
// running fn to return
func (s *Scheduler) Run(ctx context.Context, spec string, fn func(ctx context.Context)) error {
	if err := ValidateSchedule(spec); err != nil {
		return err
	}
	id, err := s.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		s.logger.WithField("schedule", spec).Info("Scheduled batch starting")
		fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule batch: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(map[string]interface{}{
		"schedule": spec,
		"next":     s.cron.Entry(id).Next,
	}).Info("Batch scheduler started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Batch scheduler stopped")
	return nil
}
