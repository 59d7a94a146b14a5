package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

// RequestRecorder принимает длительность и статус обслуженного запроса
type RequestRecorder interface {
	RecordRequest(duration time.Duration, status int)
}

// Telemetry записывает длительность и статус API запросов в recorder.
// Из этих данных RuntimeSource считает response time и error rate.
func Telemetry(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !recordable(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			recorder.RecordRequest(time.Since(start), wrapped.statusCode)
		})
	}
}

// Служебные маршруты не отражают пользовательскую нагрузку
func recordable(path string) bool {
	switch {
	case path == "/metrics", path == "/healthz", path == "/readyz", path == "/ws":
		return false
	case strings.HasPrefix(path, "/static/"):
		return false
	}
	return true
}

// RequestID проставляет X-Request-Id, если клиент его не передал
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		r.Header.Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r)
	})
}
