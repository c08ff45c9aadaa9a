// Package metrics holds the Prometheus instruments of a ccmem process on a
// private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ccmem"

// Tool call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeToolError = "tool_error"
	OutcomeFailure   = "failure"
)

// Risk search outcomes.
const (
	SearchFound = "found"
	SearchNone  = "none"
	SearchError = "error"
)

// Metrics is the set of instruments. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls    *prometheus.CounterVec
	toolLatency  *prometheus.HistogramVec
	landmines    prometheus.Counter
	riskKeywords *prometheus.CounterVec
	riskSearches *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New registers every instrument, plus the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		// Labels: tool, outcome (ok, tool_error, failure)
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool calls by tool and outcome",
		}, []string{"tool", "outcome"}),
		toolLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tools",
			Name:      "latency_seconds",
			Help:      "Tool call latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"tool"}),
		landmines: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "landmines_recorded_total",
			Help:      "Landmines recorded",
		}),
		// Labels: change (created, updated)
		riskKeywords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "keyword_changes_total",
			Help:      "Risk keywords created or extended by a landmine",
		}, []string{"change"}),
		// Labels: outcome (found, none, error)
		riskSearches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "searches_total",
			Help:      "Risk searches by outcome",
		}, []string{"outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Dashboard requests by route pattern and status code",
		}, []string{"route", "status"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTool records one tool call.
func (m *Metrics) ObserveTool(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolLatency.WithLabelValues(tool).Observe(d.Seconds())
}

// LandmineRecorded counts a landmine and the keywords it touched.
func (m *Metrics) LandmineRecorded(created, updated int) {
	if m == nil {
		return
	}
	m.landmines.Inc()
	m.riskKeywords.WithLabelValues("created").Add(float64(created))
	m.riskKeywords.WithLabelValues("updated").Add(float64(updated))
}

// RiskSearch counts a risk search by outcome.
func (m *Metrics) RiskSearch(outcome string) {
	if m == nil {
		return
	}
	m.riskSearches.WithLabelValues(outcome).Inc()
}

// HTTPRequest counts a dashboard request.
func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
