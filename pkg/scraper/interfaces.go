package scraper

import (
	"context"
	"io"
	"time"

	"xscraper/pkg/models"
	"xscraper/pkg/page"
	"xscraper/pkg/session"
)

// Launcher starts a browser for one session
type Launcher func(ctx context.Context) (page.Browser, error)

// SessionLoader provides the session artifact
type SessionLoader interface {
	Load(ctx context.Context) (*session.Artifact, error)
}

// Sink persists the result document
type Sink interface {
	Save(identity string, result *models.AggregateResult) error
}

// ScreenshotSink is implemented by sinks that also keep screenshots
type ScreenshotSink interface {
	SaveScreenshot(identity string, r io.Reader) (string, error)
}

// SessionMetrics receives session lifecycle events
type SessionMetrics interface {
	SessionStarted()
	SessionFinished(state string, elapsed time.Duration)
}
