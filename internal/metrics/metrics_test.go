package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adestefa/ccmem/internal/metrics"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveTool("test", metrics.OutcomeOK, time.Millisecond)
		m.LandmineRecorded(1, 2)
		m.RiskSearch(metrics.SearchNone)
		m.HTTPRequest("/healthz", 200)
	})
}

func TestHandlerExposesInstruments(t *testing.T) {
	m := metrics.New()
	m.ObserveTool("flag-landmine", metrics.OutcomeOK, 2*time.Millisecond)
	m.LandmineRecorded(2, 1)
	m.RiskSearch(metrics.SearchFound)
	m.HTTPRequest("/api/backlog", 200)

	n, err := testutil.GatherAndCount(m.Registry(), "ccmem_risk_landmines_recorded_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `ccmem_tools_calls_total{outcome="ok",tool="flag-landmine"} 1`)
	assert.Contains(t, text, `ccmem_risk_keyword_changes_total{change="created"} 2`)
	assert.Contains(t, text, `ccmem_risk_keyword_changes_total{change="updated"} 1`)
	assert.Contains(t, text, `ccmem_risk_searches_total{outcome="found"} 1`)
	assert.Contains(t, text, `ccmem_http_requests_total{route="/api/backlog",status="200"} 1`)
	assert.Contains(t, text, "go_goroutines")
}
