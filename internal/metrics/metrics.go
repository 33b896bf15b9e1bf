package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "teambot"

// Metrics holds the Prometheus collectors of the bot process. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	BotUpdates         *prometheus.CounterVec
	SurveyCompletions  *prometheus.CounterVec
	AvailabilityChecks *prometheus.CounterVec
	DBConnPoolStats    *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Admin API requests by route, method and status code.",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Admin API request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		BotUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bot",
				Name:      "updates_total",
				Help:      "Telegram updates by kind.",
			},
			[]string{"kind"},
		),
		SurveyCompletions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "survey",
				Name:      "completions_total",
				Help:      "Recorded survey completions by window.",
			},
			[]string{"window"},
		),
		AvailabilityChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "survey",
				Name:      "availability_checks_total",
				Help:      "Survey availability checks by outcome.",
			},
			[]string{"outcome"},
		),
		DBConnPoolStats: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "connection_pool",
				Help:      "Database connection pool statistics.",
			},
			[]string{"stat"},
		),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, http.StatusText(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) BotUpdate(kind string) {
	if m == nil {
		return
	}
	m.BotUpdates.WithLabelValues(kind).Inc()
}

func (m *Metrics) SurveyCompleted(window string) {
	if m == nil {
		return
	}
	m.SurveyCompletions.WithLabelValues(window).Inc()
}

func (m *Metrics) AvailabilityChecked(outcome string) {
	if m == nil {
		return
	}
	m.AvailabilityChecks.WithLabelValues(outcome).Inc()
}

// RecordDBPoolStats copies database/sql pool statistics into gauges.
func (m *Metrics) RecordDBPoolStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnPoolStats.WithLabelValues("open").Set(float64(stats.OpenConnections))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(stats.Idle))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(stats.WaitDuration.Milliseconds()))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
