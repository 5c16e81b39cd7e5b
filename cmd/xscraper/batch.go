package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"xscraper/internal/runner"
	"xscraper/pkg/checkpoint"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/scraper"
	"xscraper/pkg/ui"
	"xscraper/pkg/ui/tui"
)

var (
	batchTUI    bool
	resetLedger bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Collect every profile listed in a file",
	Long: `Collect every identity listed in a file, one session per identity.

The file is either a JSON array (of handles, or of objects with a "username",
"Twitter Username", "handle" or "identity" key) or one handle per line.

Identities whose result document already exists are skipped, as are those
that failed max_attempts times according to the batch ledger. Session starts
are paced by rate_limit.sessions_per_minute.`,
	Example: `  # Two sessions at a time
  xscraper batch handles.txt --concurrency 2

  # Re-run the list every night at 03:00
  xscraper batch handles.json --schedule "0 3 * * *"

  # Forget previous failures
  xscraper batch handles.txt --reset-ledger`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addCollectionFlags(batchCmd)
	batchCmd.Flags().Int("concurrency", 0, "number of concurrent sessions")
	batchCmd.Flags().String("schedule", "", "cron expression to repeat the batch on")
	batchCmd.Flags().BoolVar(&batchTUI, "tui", false, "use interactive terminal UI with real-time progress")
	batchCmd.Flags().BoolVar(&resetLedger, "reset-ledger", false, "back up and clear the batch ledger first")
}

// batch is one configured batch over a fixed identity list
type batch struct {
	*app
	identities []string
	ledger     *checkpoint.Manager
	limiter    *ratelimit.SlidingWindow
	notifier   *ui.Notifier
}

func runBatch(cmd *cobra.Command, args []string) error {
	identities, err := runner.ReadIdentities(args[0])
	if err != nil {
		return err
	}

	flags := flagMap(cmd)
	if batchTUI {
		flags["log-level"] = "error"
	}
	a, err := newApp(flags)
	if err != nil {
		return err
	}

	ledgerPath := a.cfg.Batch.LedgerPath
	if ledgerPath == "" {
		if ledgerPath, err = checkpoint.DefaultPath(); err != nil {
			return err
		}
	}
	ledger, err := checkpoint.NewManager(ledgerPath)
	if err != nil {
		return fmt.Errorf("failed to open batch ledger: %w", err)
	}
	if resetLedger {
		if err := ledger.Backup(); err != nil {
			a.log.WithError(err).Warn("Failed to back up batch ledger")
		}
		if err := ledger.Reset(); err != nil {
			return err
		}
	}

	b := &batch{
		app:        a,
		identities: identities,
		ledger:     ledger,
		limiter:    ratelimit.PerMinute(a.cfg.RateLimit.SessionsPerMinute),
		notifier:   ui.NewNotifier(a.cfg.Notifications),
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a.log.WithFields(map[string]interface{}{
		"identities":  len(identities),
		"concurrency": a.cfg.Batch.Concurrency,
		"ledger":      ledger.Path(),
	}).Info("Batch loaded")

	if spec := a.cfg.Batch.Schedule; spec != "" {
		ui.PrintInfo("Schedule", spec)
		return runner.NewScheduler(a.log).Run(ctx, spec, func(ctx context.Context) {
			if err := b.run(ctx); err != nil {
				a.log.WithError(err).Error("Scheduled batch failed")
			}
		})
	}
	return b.run(ctx)
}

func (b *batch) run(ctx context.Context) error {
	var display ui.Display
	var dashboard *tui.TUI
	tuiDone := make(chan error, 1)

	if batchTUI {
		dashboard = tui.NewTUI(b.cfg.Batch.Concurrency, b.limits)
		display = dashboard
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := dashboard.Start()
			cancel()
			tuiDone <- err
		}()
		for _, id := range b.identities {
			dashboard.Queue(id)
		}
		go b.reportPacing(ctx, dashboard)
	} else {
		display = ui.NewProgressDisplay(os.Stdout, b.limits, b.cfg.Logging.Level == "debug")
		ui.PrintInfo("Identities", fmt.Sprintf("%d", len(b.identities)))
	}

	s, err := b.newScraper(scraper.Options{
		Observer: display,
		OnState:  display.OnState,
	})
	if err != nil {
		return err
	}

	tracker := ui.NewBatchTracker(len(b.identities))
	rows := make([]ui.BatchRow, 0, len(b.identities))
	pool := runner.NewPool(ctx, b.cfg.Batch.Concurrency, s, b.limiter,
		runner.WithLedger(b.ledger, b.cfg.Batch.MaxAttempts),
		runner.WithAttemptChecker(b.store),
		runner.WithLogger(b.log),
		runner.WithResultHook(func(r runner.Result) {
			tracker.Record(r.Collected, r.Skipped, r.Error)
			rows = append(rows, batchRow(r))
			if dashboard == nil {
				tracker.PrintProgress()
				return
			}
			if r.Skipped {
				dashboard.LogInfo("@%s skipped: %s", r.Job.Identity, r.SkipReason)
			}
			dashboard.Done(r.Job.Identity, r.Collected, r.Error)
		}),
	)

	results, runErr := runner.Run(ctx, pool, b.identities)

	if dashboard != nil {
		dashboard.Stop()
		if err := <-tuiDone; err != nil {
			b.log.WithError(err).Error("Dashboard failed")
		}
	}

	ui.RenderBatch(os.Stdout, rows)
	sum := runner.Summarize(results)
	b.log.WithFields(map[string]interface{}{
		"total":     sum.Total,
		"succeeded": sum.Succeeded,
		"failed":    sum.Failed,
		"skipped":   sum.Skipped,
		"collected": sum.Collected,
	}).Info("Batch finished")

	msg := fmt.Sprintf("%d done, %d failed, %d skipped, %d items", sum.Succeeded, sum.Failed, sum.Skipped, sum.Collected)
	b.notifier.BatchFinished(sum.Failed, msg)
	return runErr
}

// reportPacing feeds limiter usage to the dashboard until ctx is done
func (b *batch) reportPacing(ctx context.Context, dashboard *tui.TUI) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dashboard.UpdatePacing(b.limiter.Usage())
		}
	}
}

func batchRow(r runner.Result) ui.BatchRow {
	row := ui.BatchRow{
		Identity:   r.Job.Identity,
		State:      string(r.State),
		Collected:  r.Collected,
		StopReason: r.StopReason,
	}
	switch {
	case r.Skipped:
		row.State = "skipped"
		row.Note = r.SkipReason
	case r.Error != nil:
		row.Note = r.Error.Error()
	}
	if len(row.Note) > 60 {
		row.Note = row.Note[:57] + "..."
	}
	return row
}
