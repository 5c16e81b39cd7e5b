package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"xscraper/pkg/config"
	"xscraper/pkg/logger"
	"xscraper/pkg/metrics"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/scraper"
	"xscraper/pkg/storage"
)

// Scraper runs one profile session
type Scraper interface {
	RunReport(ctx context.Context, identity string) (*scraper.Report, error)
}

// Store serves persisted documents and screenshots
type Store interface {
	Screenshots(identity string) ([]string, error)
	ScreenshotPath(name string) (string, error)
	DocumentPath(name string) (string, error)
}

// Deps are the collaborators of a Server. Metrics and Limiter are optional.
type Deps struct {
	Scraper Scraper
	Store   Store
	Metrics *metrics.Metrics
	Limiter ratelimit.Limiter
	Logger  logger.Logger
}

// Server is the HTTP front-end
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	router *gin.Engine
	logger logger.Logger
}

// Response headers carrying the session report next to the result body
const (
	HeaderRunID      = "X-Run-ID"
	HeaderState      = "X-Session-State"
	HeaderStopReason = "X-Stop-Reason"
	HeaderScreenshot = "X-Screenshot"
	HeaderElapsed    = "X-Elapsed-Ms"
	HeaderError      = "X-Scrape-Error"
)

// New builds the router
func New(cfg config.ServerConfig, deps Deps) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	lg := deps.Logger
	if lg == nil {
		lg = logger.GetLogger()
	}

	s := &Server{cfg: cfg, deps: deps, logger: lg}

	router := gin.New()
	router.SetHTMLTemplate(pages)
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", deps.Metrics.Handler())
	}

	router.GET("/healthz", s.health)
	router.GET("/scrape/:identity", s.scrape)
	router.GET("/screenshots/:identity", s.screenshots)
	router.GET("/screenshot/:file", s.screenshot)
	router.GET("/view-screenshots/:identity", s.viewScreenshots)
	router.GET("/scraped/:file", s.scraped)

	s.router = router
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr is the listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", srv.Addr).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.DebugWithFields("HTTP request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) scrape(c *gin.Context) {
	identity := c.Param("identity")
	if err := storage.ValidateIdentity(identity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.deps.Limiter != nil && !s.deps.Limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many sessions, retry later"})
		return
	}

	rep, err := s.deps.Scraper.RunReport(c.Request.Context(), identity)
	status := http.StatusOK
	if err != nil {
		switch {
		case errors.Is(err, scraper.ErrSessionMissing):
			status = http.StatusServiceUnavailable
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		default:
			status = http.StatusBadGateway
		}
		c.Header(HeaderError, err.Error())
		s.logger.WithError(err).WithField("identity", identity).Warn("Scrape request failed")
	}
	if rep == nil || rep.Result == nil {
		msg := "no result"
		if err != nil {
			msg = err.Error()
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.Header(HeaderRunID, rep.RunID)
	c.Header(HeaderState, string(rep.State))
	c.Header(HeaderElapsed, strconv.FormatInt(rep.Elapsed.Milliseconds(), 10))
	if reason := rep.StopReason(); reason != "" {
		c.Header(HeaderStopReason, reason)
	}
	if rep.Screenshot != "" {
		c.Header(HeaderScreenshot, rep.Screenshot)
	}
	// Partial results go out with the error status
	c.JSON(status, rep.Result)
}

// screenshots returns every screenshot of identity as one PDF, or the file
// names with ?list=1
func (s *Server) screenshots(c *gin.Context) {
	identity := c.Param("identity")
	names, ok := s.listScreenshots(c, identity)
	if !ok {
		return
	}
	if len(names) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no screenshots found for @%s", identity)})
		return
	}
	if c.Query("list") == "1" {
		c.JSON(http.StatusOK, gin.H{"identity": identity, "screenshots": names})
		return
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path, err := s.deps.Store.ScreenshotPath(name)
		if err != nil {
			continue
		}
		paths = append(paths, path)
	}

	var buf bytes.Buffer
	if err := WriteScreenshotPDF(&buf, identity, paths); err != nil {
		s.logger.WithError(err).WithField("identity", identity).Error("Failed to assemble screenshot PDF")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create PDF: " + err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_screenshots.pdf", identity))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (s *Server) viewScreenshots(c *gin.Context) {
	identity := c.Param("identity")
	names, ok := s.listScreenshots(c, identity)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "screenshots.html", gin.H{
		"Identity":    identity,
		"Screenshots": names,
	})
}

func (s *Server) listScreenshots(c *gin.Context, identity string) ([]string, bool) {
	names, err := s.deps.Store.Screenshots(identity)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidIdentity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return names, true
}

func (s *Server) screenshot(c *gin.Context) {
	s.serveFile(c, s.deps.Store.ScreenshotPath)
}

func (s *Server) scraped(c *gin.Context) {
	s.serveFile(c, s.deps.Store.DocumentPath)
}

func (s *Server) serveFile(c *gin.Context, resolve func(string) (string, error)) {
	path, err := resolve(c.Param("file"))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(path)
}
