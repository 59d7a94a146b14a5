package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles prometheus collectors used by the assistant.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	HealthScore        prometheus.Gauge
	MetricValue        *prometheus.GaugeVec
	BreachedMetrics    prometheus.Gauge
	ProfilesAnalyzed   prometheus.Counter
	Optimizations      *prometheus.CounterVec
	AuthFailures       prometheus.Counter
	RateLimitDropped   prometheus.Counter

	registry *prometheus.Registry
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "selfconfig_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "selfconfig_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		HealthScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "selfconfig_health_score",
			Help: "Health score of the latest analyzed profile (0-100).",
		}),
		MetricValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "selfconfig_metric_value",
			Help: "Latest snapshot value per metric.",
		}, []string{"metric", "unit"}),
		BreachedMetrics: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "selfconfig_breached_metrics",
			Help: "Number of metrics outside their target in the latest profile.",
		}),
		ProfilesAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "selfconfig_profiles_analyzed_total",
			Help: "Total number of analyzed profiles.",
		}),
		Optimizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "selfconfig_optimizations_total",
			Help: "Total number of optimization attempts by kind and result.",
		}, []string{"kind", "result"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "selfconfig_auth_failures_total",
			Help: "Total number of auth failures.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "selfconfig_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.HealthScore,
		m.MetricValue,
		m.BreachedMetrics,
		m.ProfilesAnalyzed,
		m.Optimizations,
		m.AuthFailures,
		m.RateLimitDropped,
	)

	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveProfile updates gauges from an analyzed profile.
func (m *Metrics) ObserveProfile(profile *entity.OptimizationProfile, score valueobject.HealthScore) {
	if profile == nil {
		return
	}

	m.ProfilesAnalyzed.Inc()
	m.HealthScore.Set(float64(score.Int()))

	breached := 0
	snapshot := profile.Snapshot()
	for _, threshold := range valueobject.DefaultThresholds() {
		value := snapshot.MetricValue(threshold.Metric())
		m.MetricValue.WithLabelValues(threshold.Metric().String(), value.Unit()).Set(value.Raw())
		if threshold.IsBreached(value.Raw()) {
			breached++
		}
	}
	m.BreachedMetrics.Set(float64(breached))
}

// ObserveOptimization counts one optimization attempt.
func (m *Metrics) ObserveOptimization(kind valueobject.OptimizationKind, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.Optimizations.WithLabelValues(kind.String(), result).Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())

		switch wrapped.statusCode {
		case http.StatusUnauthorized:
			m.AuthFailures.Inc()
		case http.StatusTooManyRequests:
			m.RateLimitDropped.Inc()
		}
	})
}

// normalizeRoute keeps label cardinality bounded.
func normalizeRoute(path string) string {
	switch {
	case path == "/" || path == "/ws" || path == "/metrics" || path == "/healthz" || path == "/readyz":
		return path
	case strings.HasPrefix(path, "/static/"):
		return "/static/*"
	case strings.HasPrefix(path, "/api/v1/auth/"):
		return "/api/v1/auth/*"
	case strings.HasPrefix(path, "/api/v1/cycle/"):
		return "/api/v1/cycle/*"
	case strings.HasPrefix(path, "/api/v1/reports"):
		return "/api/v1/reports"
	case knownAPIRoute(path):
		return path
	case path == "/api/v1" || strings.HasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	default:
		return "other"
	}
}

func knownAPIRoute(path string) bool {
	switch path {
	case "/api/v1/insights", "/api/v1/profile", "/api/v1/analyze", "/api/v1/optimize",
		"/api/v1/evaluate", "/api/v1/chat":
		return true
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
