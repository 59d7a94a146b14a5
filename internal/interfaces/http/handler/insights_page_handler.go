package handler

import (
	"net/http"

	"github.com/dreschagin/self-configuration/internal/application/usecase"
	"github.com/dreschagin/self-configuration/internal/interfaces/view"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// InsightsPageHandler обрабатывает запросы к главной странице
type InsightsPageHandler struct {
	insightsUC *usecase.GetInsightsUseCase
	logger     *logger.Logger
}

// NewInsightsPageHandler создает новый handler
func NewInsightsPageHandler(
	insightsUC *usecase.GetInsightsUseCase,
	logger *logger.Logger,
) *InsightsPageHandler {
	return &InsightsPageHandler{
		insightsUC: insightsUC,
		logger:     logger,
	}
}

// ShowInsights отображает страницу с оценкой здоровья системы
func (h *InsightsPageHandler) ShowInsights(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	insight, err := h.insightsUC.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to build insights", err)
		http.Error(w, "Failed to load insights", statusFor(err))
		return
	}

	// Рендерим Templ component
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.Insights(insight).Render(r.Context(), w); err != nil {
		h.logger.Error("Failed to render insights page", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}
