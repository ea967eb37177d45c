// Package metrics holds the console's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	obserrors "github.com/target/media-console/internal/observability/errors"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Metrics holds Prometheus collectors for session, polling, cache and HTTP activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AuthFlows      *prometheus.CounterVec
	Verifications  *prometheus.CounterVec
	Impersonations *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	Polls          *prometheus.CounterVec
	PollDuration   prometheus.Histogram
	CacheLookups   *prometheus.CounterVec
	RateLimited    *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// New registers collectors on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthFlows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_flows_total",
			Help:      "Credential flows (login, signup, logout) by outcome",
		}, []string{"flow", "result", "error_class"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_verifications_total",
			Help:      "Stored token verifications by outcome",
		}, []string{"result"}),
		Impersonations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "impersonation_transitions_total",
			Help:      "Impersonation start/end transitions by outcome",
		}, []string{"transition", "result"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Session stores currently held in memory",
		}),
		Polls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Polling loops by how they ended",
		}, []string{"result"}),
		PollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Wall time of polling loops",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_lookups_total",
			Help:      "Query cache lookups by collection and result",
		}, []string{"collection", "result"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the credential-flow limiter",
		}, []string{"route"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// resultOf maps an error to a result label.
func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// AuthFlow records the outcome of a credential flow.
func (m *Metrics) AuthFlow(flow string, err error) {
	if m == nil {
		return
	}
	m.AuthFlows.WithLabelValues(flow, resultOf(err), obserrors.Classify(err)).Inc()
}

// Verification records the outcome of verifying a stored token.
// result is one of success, error or noop (no token present).
func (m *Metrics) Verification(result string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(result).Inc()
}

// Impersonation records an impersonation transition ("start" or "end").
func (m *Metrics) Impersonation(transition string, err error) {
	if m == nil {
		return
	}
	m.Impersonations.WithLabelValues(transition, resultOf(err)).Inc()
}

// SessionOpened increments the in-memory session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the in-memory session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// Poll records how a polling loop ended ("done", "error", "canceled") and its duration.
func (m *Metrics) Poll(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Polls.WithLabelValues(result).Inc()
	m.PollDuration.Observe(d.Seconds())
}

// CacheLookup records a query cache hit or miss.
func (m *Metrics) CacheLookup(collection string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(collection, result).Inc()
}

// RateLimit records a request rejected by a limiter.
func (m *Metrics) RateLimit(route string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(route).Inc()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
