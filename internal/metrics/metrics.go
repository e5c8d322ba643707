// Package metrics provides Prometheus instrumentation for the crawler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all crawler metrics.
	Namespace = "consentcrawl"
)

// Metrics holds all Prometheus metrics for the crawler.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Probe metrics
	ProbesTotal          *prometheus.CounterVec
	ProbeDurationSeconds prometheus.Histogram
	ConsentOutcomes      *prometheus.CounterVec

	// Batch metrics
	WindowsTotal prometheus.Counter

	// Blocklist metrics
	BlocklistLoads        *prometheus.CounterVec
	BlocklistSourceFetch  *prometheus.CounterVec
	BlocklistEntries      prometheus.Gauge
	BlocklistLastFetch prometheus.Gauge

	// API metrics
	HTTPRequestsTotal *prometheus.CounterVec
	RateLimitedTotal  prometheus.Counter
}

// NewMetrics creates and registers all crawler metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initProbeMetrics(factory)
	m.initBlocklistMetrics(factory)
	m.initAPIMetrics(factory)

	return m
}

func (m *Metrics) initProbeMetrics(factory promauto.Factory) {
	m.ProbesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "probe",
			Name:      "sites_total",
			Help:      "Total number of site visits by final status",
		},
		[]string{"status"},
	)

	m.ProbeDurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Duration of a single site visit in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
		},
	)

	m.ConsentOutcomes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "consent",
			Name:      "outcomes_total",
			Help:      "Consent resolution outcomes",
		},
		[]string{"outcome"},
	)

	m.WindowsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "batch",
			Name:      "windows_total",
			Help:      "Number of completed batch windows",
		},
	)
}

func (m *Metrics) initBlocklistMetrics(factory promauto.Factory) {
	m.BlocklistLoads = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "blocklist",
			Name:      "loads_total",
			Help:      "Blocklist loads by how the index was obtained",
		},
		[]string{"result"},
	)

	m.BlocklistSourceFetch = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "blocklist",
			Name:      "source_fetches_total",
			Help:      "Blocklist source downloads by source and status",
		},
		[]string{"source", "status"},
	)

	m.BlocklistEntries = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "blocklist",
			Name:      "entries",
			Help:      "Number of domains in the active blocklist index",
		},
	)

	m.BlocklistLastFetch = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "blocklist",
			Name:      "last_fetch_timestamp_seconds",
			Help:      "Unix time of the last successful blocklist rebuild",
		},
	)
}

func (m *Metrics) initAPIMetrics(factory promauto.Factory) {
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route and status code",
		},
		[]string{"route", "code"},
	)

	m.RateLimitedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)
}

// ObserveProbe records a finished site visit
func (m *Metrics) ObserveProbe(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProbesTotal.WithLabelValues(status).Inc()
	m.ProbeDurationSeconds.Observe(elapsed.Seconds())
}

// ObserveConsent records a consent resolution outcome
func (m *Metrics) ObserveConsent(outcome string) {
	if m == nil {
		return
	}
	m.ConsentOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveWindow records a drained batch window
func (m *Metrics) ObserveWindow() {
	if m == nil {
		return
	}
	m.WindowsTotal.Inc()
}

// ObserveBlocklistLoad records how a blocklist load was satisfied and the resulting index
func (m *Metrics) ObserveBlocklistLoad(result string, entries int, lastFetch int64) {
	if m == nil {
		return
	}
	m.BlocklistLoads.WithLabelValues(result).Inc()
	m.BlocklistEntries.Set(float64(entries))
	m.BlocklistLastFetch.Set(float64(lastFetch))
}

// ObserveSourceFetch records a single blocklist source download
func (m *Metrics) ObserveSourceFetch(source, status string) {
	if m == nil {
		return
	}
	m.BlocklistSourceFetch.WithLabelValues(source, status).Inc()
}

// ObserveRequest records an API request
func (m *Metrics) ObserveRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, code).Inc()
}

// ObserveRateLimited records a rejected API request
func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}
