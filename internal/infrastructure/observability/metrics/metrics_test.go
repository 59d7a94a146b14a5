package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveProfile(t *testing.T) {
	m := New(prometheus.NewRegistry())

	snapshot := entity.MustSnapshot(250, 1800, 0.7, 0.005, 0.92)
	profile, err := entity.NewOptimizationProfile(snapshot, nil, time.Now())
	if err != nil {
		t.Fatalf("NewOptimizationProfile() error = %v", err)
	}

	m.ObserveProfile(profile, valueobject.NewHealthScore(80))

	if got := testutil.ToFloat64(m.HealthScore); got != 80 {
		t.Errorf("health score = %v, want 80", got)
	}
	if got := testutil.ToFloat64(m.BreachedMetrics); got != 2 {
		t.Errorf("breached metrics = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MetricValue.WithLabelValues("response_time", "ms")); got != 250 {
		t.Errorf("response_time gauge = %v, want 250", got)
	}
	if got := testutil.ToFloat64(m.ProfilesAnalyzed); got != 1 {
		t.Errorf("profiles analyzed = %v, want 1", got)
	}

	m.ObserveProfile(nil, valueobject.MaxHealthScore)
	if got := testutil.ToFloat64(m.ProfilesAnalyzed); got != 1 {
		t.Errorf("nil profile must be ignored, counter = %v", got)
	}
}

func TestObserveOptimization(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOptimization(valueobject.AggressiveCaching, true)
	m.ObserveOptimization(valueobject.AggressiveCaching, false)
	m.ObserveOptimization(valueobject.AggressiveCaching, true)

	kind := valueobject.AggressiveCaching.String()
	if got := testutil.ToFloat64(m.Optimizations.WithLabelValues(kind, "success")); got != 2 {
		t.Errorf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Optimizations.WithLabelValues(kind, "failure")); got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := New(prometheus.NewRegistry())

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/analyze" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/api/v1/insights", "/api/v1/insights", "/api/v1/analyze"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/insights", "GET", "200")); got != 2 {
		t.Errorf("insights requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AuthFailures); got != 1 {
		t.Errorf("auth failures = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "selfconfig_http_requests_total") {
		t.Error("expected exposition to contain selfconfig_http_requests_total")
	}
}

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/ws", "/ws"},
		{"/static/css/style.css", "/static/*"},
		{"/api/v1/auth/login", "/api/v1/auth/*"},
		{"/api/v1/cycle/run", "/api/v1/cycle/*"},
		{"/api/v1/reports", "/api/v1/reports"},
		{"/api/v1/evaluate", "/api/v1/evaluate"},
		{"/api/v1/unknown/123", "/api/v1/*"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		if got := normalizeRoute(tt.path); got != tt.want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
