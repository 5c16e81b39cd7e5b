package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/pkg/config"
	"xscraper/pkg/logger"
	"xscraper/pkg/metrics"
	"xscraper/pkg/models"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/scraper"
	"xscraper/pkg/storage"
)

type scraperStub struct {
	calls []string
	err   error
}

func (s *scraperStub) RunReport(ctx context.Context, identity string) (*scraper.Report, error) {
	s.calls = append(s.calls, identity)
	res := models.NewAggregateResult()
	res.Profile.IdentityName = "Jack"
	res.Posts = append(res.Posts, models.ContentItem{ItemID: "20", Text: "just setting up my twttr", PublishedAt: "2006-03-21"})
	state := scraper.StateFinalized
	if errors.Is(s.err, scraper.ErrSessionMissing) {
		state = scraper.StateAborted
	}
	return &scraper.Report{RunID: "run-1", Identity: identity, State: state, Result: res, Elapsed: time.Second}, s.err
}

type serverHarness struct {
	server  *Server
	scraper *scraperStub
	store   *storage.Manager
	metrics *metrics.Metrics
}

func setupServer(t *testing.T, limiter ratelimit.Limiter) *serverHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	store, err := storage.NewManager(filepath.Join(dir, "out"), filepath.Join(dir, "shots"))
	require.NoError(t, err)

	h := &serverHarness{scraper: &scraperStub{}, store: store, metrics: metrics.New()}
	h.server = New(config.ServerConfig{Host: "127.0.0.1", Port: 8080, Debug: true}, Deps{
		Scraper: h.scraper,
		Store:   store,
		Metrics: h.metrics,
		Limiter: limiter,
		Logger:  logger.NewNopLogger(),
	})
	return h
}

func (h *serverHarness) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(resp, req)
	return resp
}

func TestHealthz(t *testing.T) {
	h := setupServer(t, nil)
	resp := h.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
}

func TestScrapeReturnsResult(t *testing.T) {
	h := setupServer(t, nil)
	resp := h.get("/scrape/jack")
	require.Equal(t, http.StatusOK, resp.Code)

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &top))
	assert.Contains(t, top, "profile")
	assert.Contains(t, top, "posts")
	assert.NotContains(t, top, "result")

	var body models.AggregateResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Jack", body.Profile.IdentityName)
	assert.Len(t, body.Posts, 1)

	assert.Equal(t, "run-1", resp.Header().Get(HeaderRunID))
	assert.Equal(t, "finalized", resp.Header().Get(HeaderState))
	assert.Equal(t, "1000", resp.Header().Get(HeaderElapsed))
	assert.Empty(t, resp.Header().Get(HeaderError))
	assert.Equal(t, []string{"jack"}, h.scraper.calls)
}

func TestScrapeRejectsInvalidIdentity(t *testing.T) {
	h := setupServer(t, nil)
	resp := h.get("/scrape/not-valid!")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, h.scraper.calls)
}

func TestScrapeRateLimited(t *testing.T) {
	h := setupServer(t, ratelimit.NewTokenBucket(1, time.Hour))
	assert.Equal(t, http.StatusOK, h.get("/scrape/jack").Code)

	resp := h.get("/scrape/biz")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, []string{"jack"}, h.scraper.calls)
}

func TestScrapeErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"session missing", fmt.Errorf("load: %w", scraper.ErrSessionMissing), http.StatusServiceUnavailable},
		{"cancelled", context.Canceled, http.StatusGatewayTimeout},
		{"navigation", errors.New("navigate: max retry attempts (3) exceeded"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupServer(t, nil)
			h.scraper.err = tt.err

			resp := h.get("/scrape/jack")
			assert.Equal(t, tt.code, resp.Code)

			assert.NotEmpty(t, resp.Header().Get(HeaderError))
			var body models.AggregateResult
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, "Jack", body.Profile.IdentityName, "partial result is still returned")
		})
	}
}

func TestScreenshots(t *testing.T) {
	h := setupServer(t, nil)
	name, err := h.store.SaveScreenshot("jack", strings.NewReader("png"))
	require.NoError(t, err)

	resp := h.get("/screenshots/jack?list=1")
	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		Identity    string   `json:"identity"`
		Screenshots []string `json:"screenshots"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, []string{name}, body.Screenshots)

	resp = h.get("/screenshot/" + name)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "png", resp.Body.String())

	assert.Equal(t, http.StatusNotFound, h.get("/screenshot/jack_1.png").Code)
	assert.Equal(t, http.StatusBadRequest, h.get("/screenshot/.hidden.png").Code)
	assert.Equal(t, http.StatusBadRequest, h.get("/screenshots/bad-name").Code)
}

func TestScreenshotsPDF(t *testing.T) {
	h := setupServer(t, nil)
	_, err := h.store.SaveScreenshot("jack", bytes.NewReader(pngBytes(t, 40, 30)))
	require.NoError(t, err)
	_, err = h.store.SaveScreenshot("jack", bytes.NewReader(pngBytes(t, 20, 60)))
	require.NoError(t, err)

	resp := h.get("/screenshots/jack")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "jack_screenshots.pdf")
	assert.True(t, strings.HasPrefix(resp.Body.String(), "%PDF-"))
}

func TestScreenshotsNotFound(t *testing.T) {
	h := setupServer(t, nil)
	assert.Equal(t, http.StatusNotFound, h.get("/screenshots/jack").Code)
	assert.Equal(t, http.StatusNotFound, h.get("/screenshots/jack?list=1").Code)
}

func TestScreenshotsPDFRejectsBrokenImage(t *testing.T) {
	h := setupServer(t, nil)
	_, err := h.store.SaveScreenshot("jack", strings.NewReader("not a png"))
	require.NoError(t, err)

	resp := h.get("/screenshots/jack")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestViewScreenshots(t *testing.T) {
	h := setupServer(t, nil)
	name, err := h.store.SaveScreenshot("jack", bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)

	resp := h.get("/view-screenshots/jack")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	page := resp.Body.String()
	assert.Contains(t, page, "Screenshots for @jack")
	assert.Contains(t, page, `src="/screenshot/`+name+`"`)
	assert.Contains(t, page, `href="/screenshots/jack"`)

	resp = h.get("/view-screenshots/biz")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "No screenshots found")
	assert.NotContains(t, resp.Body.String(), "Download all as PDF")

	assert.Equal(t, http.StatusBadRequest, h.get("/view-screenshots/bad-name").Code)
}

func TestScrapedDocuments(t *testing.T) {
	h := setupServer(t, nil)
	res := models.NewAggregateResult()
	res.Profile.Bio = "builder"
	require.NoError(t, h.store.Save("jack", res))

	resp := h.get("/scraped/jack.json")
	require.Equal(t, http.StatusOK, resp.Code)
	var got models.AggregateResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "builder", got.Profile.Bio)

	assert.Equal(t, http.StatusNotFound, h.get("/scraped/biz.json").Code)
	assert.Equal(t, http.StatusBadRequest, h.get("/scraped/jack.png").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupServer(t, nil)
	h.get("/healthz")

	resp := h.get("/metrics")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "xscraper_http_requests_total")
	assert.Contains(t, resp.Body.String(), `endpoint="/healthz"`)
}

func TestAddr(t *testing.T) {
	h := setupServer(t, nil)
	assert.Equal(t, "127.0.0.1:8080", h.server.Addr())
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 29, G: 161, B: 242, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
