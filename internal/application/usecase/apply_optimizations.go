package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/application/optimization"
	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/repository"
	"github.com/dreschagin/self-configuration/internal/domain/service"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// FailedOptimization описывает оптимизацию, которую не удалось применить
type FailedOptimization struct {
	Optimization string `json:"optimization"`
	Description  string `json:"description"`
	Reason       string `json:"reason"`
}

// ApplyResult содержит результат применения оптимизаций
type ApplyResult struct {
	Profile *entity.OptimizationProfile
	Applied []string
	// Unchanged - оптимизации, которые уже действовали до вызова
	Unchanged []string
	Failed    []FailedOptimization
	Narrative string
}

// ApplyOptimizationsUseCase анализирует систему и применяет рекомендованные оптимизации
type ApplyOptimizationsUseCase struct {
	analyze     *AnalyzePerformanceUseCase
	applier     *optimization.Applier
	repository  repository.ProfileRepository
	synthesizer *service.NarrativeSynthesizer
	events      port.EventPublisher
	observer    port.ProfileObserver
	logger      *logger.Logger
}

// NewApplyOptimizationsUseCase создает новый use case. repository, events и observer могут быть nil.
func NewApplyOptimizationsUseCase(
	analyze *AnalyzePerformanceUseCase,
	applier *optimization.Applier,
	repository repository.ProfileRepository,
	synthesizer *service.NarrativeSynthesizer,
	events port.EventPublisher,
	observer port.ProfileObserver,
	logger *logger.Logger,
) *ApplyOptimizationsUseCase {
	return &ApplyOptimizationsUseCase{
		analyze:     analyze,
		applier:     applier,
		repository:  repository,
		synthesizer: synthesizer,
		events:      events,
		observer:    observer,
		logger:      logger,
	}
}

// Execute выполняет свежий анализ и применяет все его рекомендации
func (uc *ApplyOptimizationsUseCase) Execute(ctx context.Context) (*ApplyResult, error) {
	profile, err := uc.analyze.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return uc.ApplyTo(ctx, profile, profile.RecommendationKinds())
}

// ApplyTo применяет kinds к профилю.
// Неудачные оптимизации логируются и исключаются из списка примененных, ошибкой не считаются.
func (uc *ApplyOptimizationsUseCase) ApplyTo(
	ctx context.Context,
	profile *entity.OptimizationProfile,
	kinds []valueobject.OptimizationKind,
) (*ApplyResult, error) {
	if profile == nil {
		return nil, errors.New("profile cannot be nil")
	}

	outcome := uc.applier.ApplyAll(ctx, kinds)
	updated := profile.WithApplied(outcome.InEffect()...)

	if uc.repository != nil {
		if err := uc.repository.Save(ctx, updated); err != nil {
			uc.logger.Error("Failed to save applied optimizations", err, "profile_id", updated.ID())
			return nil, fmt.Errorf("failed to save profile: %w", err)
		}
	}
	uc.analyze.Remember(ctx, updated)

	result := &ApplyResult{
		Profile:   updated,
		Applied:   make([]string, len(outcome.Applied)),
		Unchanged: make([]string, len(outcome.Unchanged)),
		Failed:    make([]FailedOptimization, 0, len(outcome.Failed)),
	}
	for i, kind := range outcome.Applied {
		result.Applied[i] = kind.Text()
		uc.notify(ctx, updated, kind, true, "")
	}
	for i, kind := range outcome.Unchanged {
		result.Unchanged[i] = kind.Text()
	}
	failures := outcome.Failed
	for _, failure := range failures {
		result.Failed = append(result.Failed, FailedOptimization{
			Optimization: failure.Optimization.String(),
			Description:  failure.Optimization.Text(),
			Reason:       failure.Reason,
		})
		uc.notify(ctx, updated, failure.Optimization, false, failure.Reason)
	}

	result.Narrative = uc.narrative(result, failures)

	uc.logger.Info("Optimizations applied",
		"profile_id", updated.ID(),
		"applied", len(result.Applied),
		"unchanged", len(result.Unchanged),
		"failed", len(result.Failed),
	)

	return result, nil
}

func (uc *ApplyOptimizationsUseCase) narrative(result *ApplyResult, failures []*optimization.OptimizationApplicationFailedError) string {
	if uc.synthesizer == nil {
		return ""
	}

	var text string
	if len(result.Applied) > 0 {
		text = uc.synthesizer.SynthesizeOptimizationSuccess(result.Applied)
	}
	if len(result.Unchanged) > 0 {
		if text != "" {
			text += "\n\n"
		}
		text += uc.synthesizer.SynthesizeAlreadyInEffect(result.Unchanged)
	}
	if len(failures) > 0 {
		recovery := uc.synthesizer.SynthesizeErrorRecovery(failures[0])
		if text != "" {
			text += "\n\n"
		}
		text += recovery
	}
	if text == "" {
		text = "Your system is already running within every target, so there is nothing to optimize right now."
	}
	return text
}

func (uc *ApplyOptimizationsUseCase) notify(
	ctx context.Context,
	profile *entity.OptimizationProfile,
	kind valueobject.OptimizationKind,
	success bool,
	reason string,
) {
	if uc.observer != nil {
		uc.observer.ObserveOptimization(kind, success)
	}

	if uc.events == nil {
		return
	}

	subject := port.SubjectOptimizationApplied
	if !success {
		subject = port.SubjectOptimizationFailed
	}

	event := dto.OptimizationEvent{
		ProfileID:    profile.ID(),
		Optimization: kind.String(),
		Description:  kind.Text(),
		Success:      success,
		Reason:       reason,
		Timestamp:    profile.Timestamp(),
	}
	if err := uc.events.PublishEvent(ctx, subject, event); err != nil {
		uc.logger.Warn("Failed to publish optimization event", "optimization", kind.String(), "error", err.Error())
	}
}
