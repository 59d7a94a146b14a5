package handler

import (
	"net/http"

	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/application/usecase"
	"github.com/dreschagin/self-configuration/internal/domain/service"
	"github.com/dreschagin/self-configuration/internal/interfaces/http/middleware"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// OptimizeAPIHandler запускает анализ с применением рекомендаций
type OptimizeAPIHandler struct {
	applyUC *usecase.ApplyOptimizationsUseCase
	engine  *service.RecommendationEngine
	logger  *logger.Logger
}

type optimizeResponse struct {
	Profile   *dto.ProfileDTO              `json:"profile"`
	Applied   []string                     `json:"applied"`
	Unchanged []string                     `json:"unchanged"`
	Failed    []usecase.FailedOptimization `json:"failed"`
	Narrative string                       `json:"narrative"`
}

func NewOptimizeAPIHandler(
	applyUC *usecase.ApplyOptimizationsUseCase,
	engine *service.RecommendationEngine,
	log *logger.Logger,
) *OptimizeAPIHandler {
	if engine == nil {
		engine = service.NewRecommendationEngine()
	}
	return &OptimizeAPIHandler{
		applyUC: applyUC,
		engine:  engine,
		logger:  log,
	}
}

// Optimize выполняет свежий анализ и применяет его рекомендации.
// Неудачные оптимизации попадают в failed, статус ответа остается 200.
func (h *OptimizeAPIHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.applyUC.Execute(r.Context())
	if err != nil {
		h.logger.Error("Optimization run failed", err)
		middleware.WriteError(w, statusFor(err), "optimization failed")
		return
	}

	failed := result.Failed
	if failed == nil {
		failed = []usecase.FailedOptimization{}
	}

	middleware.WriteJSON(w, http.StatusOK, optimizeResponse{
		Profile:   dto.FromProfile(result.Profile, h.engine),
		Applied:   result.Applied,
		Unchanged: result.Unchanged,
		Failed:    failed,
		Narrative: result.Narrative,
	})
}
