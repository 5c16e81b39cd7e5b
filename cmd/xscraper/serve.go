package main

import (
	"time"

	"github.com/spf13/cobra"

	"xscraper/pkg/metrics"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/scraper"
	"xscraper/pkg/server"
	"xscraper/pkg/ui"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve collection over HTTP",
	Long: `Start the HTTP front-end.

Endpoints:
  GET /scrape/:identity            run one session and return its result
  GET /screenshots/:identity       download the screenshots as one PDF (?list=1 for names)
  GET /view-screenshots/:identity  browse the screenshots
  GET /screenshot/:file            download one screenshot
  GET /scraped/:file               download one result document
  GET /healthz                     liveness
  GET /metrics                     Prometheus metrics

Session starts share one token bucket sized by rate_limit.burst_size and
refilled at rate_limit.sessions_per_minute; excess requests get 429.`,
	Example: `  xscraper serve --port 8000`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addCollectionFlags(serveCmd)
	serveCmd.Flags().Int("port", 0, "listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(flagMap(cmd))
	if err != nil {
		return err
	}
	a.cfg.Server.Debug = a.cfg.Logging.Level == "debug"

	m := metrics.New()
	s, err := a.newScraper(scraper.Options{
		Observer: m,
		Metrics:  m,
	})
	if err != nil {
		return err
	}

	rl := a.cfg.RateLimit
	refill := time.Duration(rl.BurstSize) * time.Minute / time.Duration(rl.SessionsPerMinute)
	srv := server.New(a.cfg.Server, server.Deps{
		Scraper: s,
		Store:   a.store,
		Metrics: m,
		Limiter: ratelimit.NewTokenBucket(rl.BurstSize, refill),
		Logger:  a.log,
	})

	ctx, stop := signalContext(cmd)
	defer stop()

	ui.PrintInfo("Listening on", srv.Addr())
	return srv.ListenAndServe(ctx)
}
