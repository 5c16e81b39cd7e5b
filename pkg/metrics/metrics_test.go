package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/pkg/collector"
	"xscraper/pkg/models"
)

func TestObserverCounts(t *testing.T) {
	m := New()

	m.OnCycle(collector.CycleStats{Kind: models.ListTimeline, Accepted: 3, StaleStreak: 0})
	m.OnCycle(collector.CycleStats{Kind: models.ListTimeline, Accepted: 0, StaleStreak: 1})
	m.OnStop(collector.CycleStats{Kind: models.ListTimeline}, collector.ReasonStale)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cyclesTotal.WithLabelValues("timeline")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemsCollected.WithLabelValues("timeline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleStreak.WithLabelValues("timeline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loopStops.WithLabelValues("timeline", "stale")))
}

func TestSessionLifecycle(t *testing.T) {
	m := New()
	m.SessionStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))

	m.SessionFinished("finalized", 2*time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsTotal.WithLabelValues("finalized")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/healthz", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "xscraper_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
