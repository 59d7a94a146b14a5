package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/application/usecase"
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/repository"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

const maxSnapshotBodyBytes = 64 * 1024

// ProfileAPIHandler обрабатывает запросы анализа и профилей
type ProfileAPIHandler struct {
	analyzeUC  *usecase.AnalyzePerformanceUseCase
	insightsUC *usecase.GetInsightsUseCase
	logger     *logger.Logger
}

// NewProfileAPIHandler создает новый handler
func NewProfileAPIHandler(
	analyzeUC *usecase.AnalyzePerformanceUseCase,
	insightsUC *usecase.GetInsightsUseCase,
	logger *logger.Logger,
) *ProfileAPIHandler {
	return &ProfileAPIHandler{
		analyzeUC:  analyzeUC,
		insightsUC: insightsUC,
		logger:     logger,
	}
}

// GetInsights возвращает оценку здоровья и рассказ по последнему профилю
func (h *ProfileAPIHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	insight, err := h.insightsUC.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to build insights", err)
		middleware.WriteError(w, statusFor(err), "failed to build insights")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, insight)
}

// GetProfile возвращает последний профиль
func (h *ProfileAPIHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profile, err := h.insightsUC.LatestProfile(r.Context())
	if err != nil {
		h.logger.Error("Failed to load latest profile", err)
		middleware.WriteError(w, statusFor(err), "failed to load profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.FromProfile(profile, h.analyzeUC.Engine()))
}

// Analyze выполняет новый цикл анализа
func (h *ProfileAPIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profile, err := h.analyzeUC.Execute(r.Context())
	if err != nil {
		h.logger.Error("Analysis failed", err)
		middleware.WriteError(w, statusFor(err), "analysis failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.FromProfile(profile, h.analyzeUC.Engine()))
}

// Evaluate анализирует переданный клиентом snapshot без сохранения
func (h *ProfileAPIHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSnapshotBodyBytes)
	defer r.Body.Close()

	var req dto.SnapshotDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if strings.Contains(err.Error(), "http: request body too large") {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := req.ToEntity(time.Now())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.analyzeUC.Evaluate(snapshot)
	if err != nil {
		h.logger.Error("Evaluation failed", err)
		middleware.WriteError(w, statusFor(err), "evaluation failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.FromProfile(profile, h.analyzeUC.Engine()))
}

// statusFor отображает ошибки приложения в HTTP статусы
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrArchiveNotConfigured), errors.Is(err, usecase.ErrVaultNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, usecase.ErrInvalidVaultKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
