// Package metrics holds the Prometheus collectors of the journey pipeline and
// its status server. Collectors register with the default registry on first
// use.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "journey"

// Stage outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeResumed = "resumed"
	OutcomeFailure = "failure"
)

var (
	stageRunsTotal           *prometheus.CounterVec
	stageDurationSeconds     *prometheus.HistogramVec
	classifiedLinksTotal     prometheus.Counter
	collaboratorCallsTotal   *prometheus.CounterVec
	persistenceFailuresTotal prometheus.Counter
	activePeriods            prometheus.Gauge

	fetchPagesTotal        *prometheus.CounterVec
	fetchBytesTotal        *prometheus.CounterVec
	rateLimitDelaysSeconds *prometheus.HistogramVec

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	registerOnce sync.Once
)

// Init registers every collector. Repeated calls are no-ops.
func Init() {
	registerOnce.Do(func() {
		registerPipeline()
		registerFetch()
		registerHTTP()
	})
}

func registerPipeline() {
	stageRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_runs_total",
		Help:      "Stage executions per period, by stage and outcome.",
	}, []string{"stage", "outcome"})
	stageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall time of executed (not resumed) stages.",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"stage"})
	classifiedLinksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classified_links_total",
		Help:      "Links assigned a journey stage and page type.",
	})
	collaboratorCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "collaborator_calls_total",
		Help:      "Calls to discovery, taxonomy, selection and page collaborators.",
	}, []string{"collaborator", "outcome"})
	persistenceFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_failures_total",
		Help:      "Checkpoint writes that failed.",
	})
	activePeriods = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_periods",
		Help:      "Periods currently moving through the pipeline.",
	})
}

func registerFetch() {
	fetchPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_pages_total",
		Help:      "Archived pages downloaded, by host and HTTP status.",
	}, []string{"site", "status"})
	fetchBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_bytes_total",
		Help:      "Body bytes downloaded, by host.",
	}, []string{"site"})
	rateLimitDelaysSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rate_limit_delays_seconds",
		Help:      "Time spent waiting for a request token, by host.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"domain"})
}

func registerHTTP() {
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Status server requests, by method and status code.",
	}, []string{"method", "code"})
	httpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Status server latency, by method and route pattern.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SanitizeSite reduces rawURL to a lowercase host suitable as a label value,
// or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	if host := u.Hostname(); host != "" {
		return strings.ToLower(host)
	}
	return "unknown"
}

// ObserveStage counts one stage outcome. Resumed stages add no duration
// sample.
func ObserveStage(stage, outcome string, took time.Duration) {
	Init()
	stageRunsTotal.WithLabelValues(stage, outcome).Inc()
	if outcome == OutcomeResumed {
		return
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(took.Seconds())
}

// AddClassifiedLinks adds n classified links.
func AddClassifiedLinks(n int) {
	Init()
	if n <= 0 {
		return
	}
	classifiedLinksTotal.Add(float64(n))
}

// ObserveCollaborator counts one collaborator call by its error.
func ObserveCollaborator(name string, err error) {
	Init()
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	collaboratorCallsTotal.WithLabelValues(name, outcome).Inc()
}

// ObservePersistenceFailure counts one failed checkpoint write.
func ObservePersistenceFailure() {
	Init()
	persistenceFailuresTotal.Inc()
}

// ObserveFetch counts one page download of pageURL.
func ObserveFetch(pageURL, status string, size int) {
	Init()
	site := SanitizeSite(pageURL)
	fetchPagesTotal.WithLabelValues(site, status).Inc()
	if size > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(size))
	}
}

// ObserveRateLimitDelay records how long a request waited for host.
func ObserveRateLimitDelay(host string, waited time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(waited.Seconds())
}

// ObserveHTTPRequest records one status server request.
func ObserveHTTPRequest(method, route string, code int, took time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(took.Seconds())
}

// IncActivePeriods marks a period as started.
func IncActivePeriods() {
	Init()
	activePeriods.Inc()
}

// DecActivePeriods marks a period as finished.
func DecActivePeriods() {
	Init()
	activePeriods.Dec()
}
