package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

const maxCycleResponseBytes = 2 * 1024 * 1024

// CycleAPIHandler проксирует запросы к отдельному процессу периодического анализа
type CycleAPIHandler struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

func NewCycleAPIHandler(baseURL string, timeout time.Duration, log *logger.Logger) *CycleAPIHandler {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	return &CycleAPIHandler{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

func (h *CycleAPIHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.proxy(w, r, http.MethodGet, "/api/v1/cycle/summary")
}

func (h *CycleAPIHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.proxy(w, r, http.MethodPost, "/api/v1/cycle/run")
}

func (h *CycleAPIHandler) proxy(w http.ResponseWriter, r *http.Request, method string, path string) {
	if h.baseURL == "" {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "cycle service base URL is not configured",
		})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), method, h.baseURL+path, nil)
	if err != nil {
		h.logger.Error("Failed to build cycle service request", err, "path", path)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build cycle service request",
		})
		return
	}
	req.Header.Set("Accept", "application/json")
	if requestID := r.Header.Get(middleware.RequestIDHeader); requestID != "" {
		req.Header.Set(middleware.RequestIDHeader, requestID)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("Cycle service request failed", err, "path", path)
		middleware.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"error": "cycle service is unavailable",
		})
		return
	}
	defer resp.Body.Close()

	body, err := readLimited(resp.Body, maxCycleResponseBytes)
	if err != nil {
		h.logger.Error("Failed to read cycle service response body", err, "path", path)
		middleware.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"error": "failed to read cycle service response",
		})
		return
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = "application/json"
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("Failed to write cycle service response to client", err, "path", path)
	}
}

// readLimited читает не больше limit байт, иначе возвращает io.ErrUnexpectedEOF
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}
