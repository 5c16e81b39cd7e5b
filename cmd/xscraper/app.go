package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"xscraper/pkg/collector"
	"xscraper/pkg/config"
	"xscraper/pkg/logger"
	"xscraper/pkg/page"
	"xscraper/pkg/page/chrome"
	"xscraper/pkg/scraper"
	"xscraper/pkg/session"
	"xscraper/pkg/storage"
)

// app holds what the collecting commands build from configuration
type app struct {
	cfg    *config.Config
	log    logger.Logger
	store  *storage.Manager
	limits collector.Limits
}

// flagMap returns the flags the user set on cmd, keyed by flag name
func flagMap(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Value.Type() {
		case "int":
			if v, err := cmd.Flags().GetInt(f.Name); err == nil {
				flags[f.Name] = v
			}
		case "bool":
			if v, err := cmd.Flags().GetBool(f.Name); err == nil {
				flags[f.Name] = v
			}
		default:
			flags[f.Name] = f.Value.String()
		}
	})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

// loadConfig loads configuration and initializes the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}

func newApp(flags map[string]interface{}) (*app, error) {
	cfg, lg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewManager(
		cfg.Output.BaseDirectory,
		cfg.Output.ScreenshotDirectory,
		storage.WithMinMarkerSize(cfg.Output.MinMarkerSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	limits, err := collector.LimitsFromConfig(cfg.Collection)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: lg, store: store, limits: limits}, nil
}

// launcher starts a fresh Chrome per session
func (a *app) launcher() scraper.Launcher {
	opts := chrome.Options{
		ExecPath:     a.cfg.Browser.ExecPath,
		Headless:     a.cfg.Browser.Headless,
		UserAgent:    a.cfg.Browser.UserAgent,
		WindowWidth:  a.cfg.Browser.WindowWidth,
		WindowHeight: a.cfg.Browser.WindowHeight,
		Logger:       a.log,
	}
	return func(ctx context.Context) (page.Browser, error) {
		b, err := chrome.Launch(ctx, opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// newScraper fills in the browser, session and sink collaborators of opts
func (a *app) newScraper(opts scraper.Options) (*scraper.Scraper, error) {
	loader, err := session.LoaderFromConfig(a.cfg.Session, a.log)
	if err != nil {
		return nil, err
	}
	opts.Launch = a.launcher()
	opts.Loader = loader
	opts.Sink = a.store
	opts.Logger = a.log
	return scraper.New(a.cfg, opts)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
