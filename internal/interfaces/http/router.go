package http

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/dreschagin/self-configuration/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/handler"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/config"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// Handlers содержит HTTP handlers приложения. Reports, Cycle и Vault могут быть nil.
type Handlers struct {
	Page      *handler.InsightsPageHandler
	Profile   *handler.ProfileAPIHandler
	Optimize  *handler.OptimizeAPIHandler
	Chat      *handler.ChatAPIHandler
	Reports   *handler.ReportAPIHandler
	Auth      *handler.AuthAPIHandler
	WebSocket *handler.WebSocketHandler
	Cycle     *handler.CycleAPIHandler
	Vault     *handler.VaultAPIHandler
}

// Options содержит необязательную инфраструктуру router'а
type Options struct {
	Metrics     *metrics.Metrics
	Recorder    middleware.RequestRecorder
	RateLimiter *middleware.IPRateLimiter
	Compression bool
	// Ready проверяет зависимости для /readyz
	Ready func(ctx context.Context) error
}

// Router настраивает маршруты приложения
type Router struct {
	mux      *http.ServeMux
	handlers Handlers
	security config.SecurityConfig
	options  Options
	logger   *logger.Logger
}

// NewRouter создает новый router
func NewRouter(
	handlers Handlers,
	security config.SecurityConfig,
	options Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		handlers: handlers,
		security: security,
		options:  options,
		logger:   logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Static assets are embedded into the binary.
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("failed to initialize embedded static assets: " + err.Error())
	}
	rt.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Probes are unauthenticated.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", rt.readiness)

	if rt.options.Metrics != nil {
		rt.mux.Handle("/metrics", rt.options.Metrics.Handler())
	}

	protect := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)
	route := func(pattern string, h http.HandlerFunc) {
		rt.mux.Handle(pattern, protect(h))
	}

	// Insights page
	route("/", rt.handlers.Page.ShowInsights)

	// WebSocket проверяет токен сам, до upgrade
	rt.mux.HandleFunc("/ws", rt.handlers.WebSocket.HandleConnection)

	// Auth
	rt.mux.HandleFunc("/api/v1/auth/login", rt.handlers.Auth.Login)
	rt.mux.HandleFunc("/api/v1/auth/logout", rt.handlers.Auth.Logout)
	rt.mux.HandleFunc("/api/v1/auth/status", rt.handlers.Auth.Status)

	// API endpoints
	route("/api/v1/insights", rt.handlers.Profile.GetInsights)
	route("/api/v1/profile", rt.handlers.Profile.GetProfile)
	route("/api/v1/analyze", rt.handlers.Profile.Analyze)
	route("/api/v1/evaluate", rt.handlers.Profile.Evaluate)
	route("/api/v1/optimize", rt.handlers.Optimize.Optimize)
	route("/api/v1/chat", rt.handlers.Chat.Chat)

	if rt.handlers.Reports != nil {
		route("/api/v1/reports", rt.handlers.Reports.HandleReports)
	} else {
		route("/api/v1/reports", notConfigured("report archive is not configured"))
	}

	if rt.handlers.Vault != nil {
		route("GET /api/v1/vault/stats", rt.handlers.Vault.Stats)
		route("GET /api/v1/vault/items/{key}", rt.handlers.Vault.HasItem)
		route("DELETE /api/v1/vault/items/{key}", rt.handlers.Vault.DeleteItem)
		route("DELETE /api/v1/vault", rt.handlers.Vault.Clear)
	}

	if rt.handlers.Cycle != nil {
		route("/api/v1/cycle/summary", rt.handlers.Cycle.GetSummary)
		route("/api/v1/cycle/run", rt.handlers.Cycle.RunNow)
	}

	// Применяем middleware, внешний слой последним
	var handler http.Handler = rt.mux
	if rt.options.Recorder != nil {
		handler = middleware.Telemetry(rt.options.Recorder)(handler)
	}
	if rt.options.Compression {
		handler = middleware.Compression(handler)
	}
	if rt.options.RateLimiter != nil {
		handler = middleware.RateLimit(rt.options.RateLimiter)(handler)
	}
	if rt.options.Metrics != nil {
		handler = rt.options.Metrics.Middleware(handler)
	}
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}

func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	if rt.options.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := rt.options.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", "error", err.Error())
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func notConfigured(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusServiceUnavailable, message)
	}
}
