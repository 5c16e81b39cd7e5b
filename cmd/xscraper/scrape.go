package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xscraper/pkg/scraper"
	"xscraper/pkg/storage"
	"xscraper/pkg/ui"
	"xscraper/pkg/ui/tui"
)

var useTUI bool

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <identity>",
	Short: "Collect one profile",
	Long: `Collect the header, posts and reposts of one profile, and its followers
and following lists when their limits are above zero.

The session cookies are read from the configured backend (see 'xscraper
session import'). The result is written to <output>/<identity>.json even when
collection ends early; a failed profile check leaves a screenshot behind.`,
	Example: `  # Collect with the configured limits
  xscraper scrape jack

  # Fifty posts, no reposts, stop at the first post older than 2024
  xscraper scrape jack --max-posts 50 --max-reposts 0 --stop-date 2024-01-01

  # Include the first 200 followers and watch the dashboard
  xscraper scrape jack --max-followers 200 --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addCollectionFlags(scrapeCmd)
	scrapeCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
}

// addCollectionFlags registers the flags shared by scrape, batch and serve
func addCollectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "output directory for result documents")
	cmd.Flags().String("cookies", "", "cookie export used by the file session backend")
	cmd.Flags().String("session-backend", "", "session backend (file, keyring, encrypted)")
	cmd.Flags().String("session-name", "", "session name in the keyring or encrypted backend")
	cmd.Flags().Int("max-posts", 0, "maximum posts to collect")
	cmd.Flags().Int("max-reposts", 0, "maximum reposts to collect")
	cmd.Flags().Int("max-followers", 0, "maximum followers to collect (0 skips the list)")
	cmd.Flags().Int("max-following", 0, "maximum following to collect (0 skips the list)")
	cmd.Flags().String("stop-date", "", "stop at the first post older than this date (YYYY-MM-DD)")
	cmd.Flags().Bool("headless", true, "run the browser without a window")
}

func runScrape(cmd *cobra.Command, args []string) error {
	identity := strings.TrimPrefix(strings.TrimSpace(args[0]), "@")
	if err := storage.ValidateIdentity(identity); err != nil {
		return err
	}

	flags := flagMap(cmd)
	if useTUI {
		// keep log lines off the dashboard
		flags["log-level"] = "error"
	}
	a, err := newApp(flags)
	if err != nil {
		return err
	}

	var display ui.Display
	var dashboard *tui.TUI
	if useTUI {
		dashboard = tui.NewTUI(1, a.limits)
		display = dashboard
	} else {
		ui.PrintInfo("Target Profile", "@"+identity)
		display = ui.NewProgressDisplay(os.Stdout, a.limits, a.cfg.Logging.Level == "debug")
	}

	s, err := a.newScraper(scraper.Options{
		Observer: display,
		OnState:  display.OnState,
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a.log.WithField("identity", identity).Info("Starting collection")

	var rep *scraper.Report
	if dashboard != nil {
		rep, err = scrapeWithDashboard(ctx, stop, dashboard, s, identity)
	} else {
		ui.PrintHighlight("[COLLECTING]")
		rep, err = s.RunReport(ctx, identity)
	}

	notifier := ui.NewNotifier(a.cfg.Notifications)
	if rep != nil && len(rep.Outcomes) > 0 {
		ui.RenderSummary(os.Stdout, rep, a.limits)
	}
	if rep != nil && rep.Screenshot != "" {
		ui.PrintInfo("Screenshot", rep.Screenshot)
	}

	if err != nil {
		a.log.WithError(err).WithField("identity", identity).Error("Collection failed")
		notifier.SessionFailed(identity, err)
		if errors.Is(err, scraper.ErrSessionMissing) {
			ui.PrintWarning("No usable session", "run 'xscraper session guide' to create one")
		}
		return err
	}

	a.log.WithFields(map[string]interface{}{
		"identity":  identity,
		"run_id":    rep.RunID,
		"collected": rep.Collected(),
	}).Info("Collection completed")
	notifier.SessionComplete(identity, rep.Collected(), rep.StopReason())
	ui.PrintSuccess("[COLLECTION COMPLETED]")
	return nil
}

// scrapeWithDashboard runs the session while the dashboard owns the
// terminal. Quitting the dashboard cancels the session.
func scrapeWithDashboard(ctx context.Context, cancel context.CancelFunc, dashboard *tui.TUI, s *scraper.Scraper, identity string) (*scraper.Report, error) {
	tuiDone := make(chan error, 1)
	go func() {
		err := dashboard.Start()
		cancel()
		tuiDone <- err
	}()

	dashboard.Queue(identity)
	rep, err := s.RunReport(ctx, identity)
	dashboard.Done(identity, rep.Collected(), err)

	dashboard.Stop()
	if tuiErr := <-tuiDone; tuiErr != nil {
		return rep, errors.Join(err, tuiErr)
	}
	return rep, err
}
