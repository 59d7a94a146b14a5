package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/usecase"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// ReportAPIHandler архивирует и перечисляет отчеты о здоровье системы
type ReportAPIHandler struct {
	archiveReportUC *usecase.ArchiveReportUseCase
	listReportsUC   *usecase.ListReportsUseCase
	logger          *logger.Logger
	maxLimit        int
	archiveLimiter  *middleware.IPRateLimiter
}

func NewReportAPIHandler(
	archiveReportUC *usecase.ArchiveReportUseCase,
	listReportsUC *usecase.ListReportsUseCase,
	maxLimit int,
	archivePerMinute int,
	log *logger.Logger,
) *ReportAPIHandler {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if archivePerMinute <= 0 {
		archivePerMinute = 10
	}

	return &ReportAPIHandler{
		archiveReportUC: archiveReportUC,
		listReportsUC:   listReportsUC,
		logger:          log,
		maxLimit:        maxLimit,
		archiveLimiter:  middleware.NewIPRateLimiter(float64(archivePerMinute)/60, archivePerMinute),
	}
}

// HandleReports обрабатывает GET (список) и POST (архивирование)
func (h *ReportAPIHandler) HandleReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListReports(w, r)
	case http.MethodPost:
		h.ArchiveReport(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ReportAPIHandler) ArchiveReport(w http.ResponseWriter, r *http.Request) {
	if !h.archiveLimiter.Allow(middleware.ClientIP(r)) {
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	report, err := h.archiveReportUC.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to archive report", err)
		middleware.WriteError(w, statusFor(err), err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, report)
}

func (h *ReportAPIHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if parsed > h.maxLimit {
			parsed = h.maxLimit
		}
		limit = parsed
	}

	from, err := parseTimeParam(query.Get("from"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid from: expected RFC3339")
		return
	}
	to, err := parseTimeParam(query.Get("to"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid to: expected RFC3339")
		return
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		middleware.WriteError(w, http.StatusBadRequest, "from must be less than or equal to to")
		return
	}

	result, err := h.listReportsUC.Execute(r.Context(), usecase.ListReportsCommand{
		Limit:  limit,
		Cursor: query.Get("cursor"),
		From:   from,
		To:     to,
	})
	if err != nil {
		h.logger.Error("Failed to list reports", err)
		status := statusFor(err)
		if !errors.Is(err, usecase.ErrArchiveNotConfigured) && strings.Contains(err.Error(), "cursor") {
			status = http.StatusBadRequest
		}
		middleware.WriteError(w, status, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

func parseTimeParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
