package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/repository"
	"github.com/dreschagin/self-configuration/internal/domain/service"
	"github.com/dreschagin/self-configuration/pkg/logger"
)

// VaultProfileKey ключ, под которым в vault хранится последний профиль
const VaultProfileKey = "optimization_profile"

// AnalyzeDependencies содержит зависимости анализа.
// Все поля, кроме Source и Engine, необязательны.
type AnalyzeDependencies struct {
	Source     port.MetricsSource
	Engine     *service.RecommendationEngine
	Repository repository.ProfileRepository
	Vault      port.Vault
	Events     port.EventPublisher
	Metrics    port.MetricsPublisher
	Observer   port.ProfileObserver
	Notifier   port.NotificationService
	Clock      func() time.Time
}

// AnalyzePerformanceUseCase координирует сбор snapshot'а, анализ, сохранение и рассылку профиля
type AnalyzePerformanceUseCase struct {
	deps   AnalyzeDependencies
	logger *logger.Logger
}

// NewAnalyzePerformanceUseCase создает новый use case
func NewAnalyzePerformanceUseCase(deps AnalyzeDependencies, logger *logger.Logger) *AnalyzePerformanceUseCase {
	if deps.Engine == nil {
		deps.Engine = service.NewRecommendationEngine()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &AnalyzePerformanceUseCase{deps: deps, logger: logger}
}

// Engine возвращает движок рекомендаций
func (uc *AnalyzePerformanceUseCase) Engine() *service.RecommendationEngine {
	return uc.deps.Engine
}

// Execute выполняет полный цикл анализа
func (uc *AnalyzePerformanceUseCase) Execute(ctx context.Context) (*entity.OptimizationProfile, error) {
	// 1. Снимаем snapshot
	uc.logger.Debug("Collecting metrics snapshot")
	snapshot, err := uc.deps.Source.Collect(ctx)
	if err != nil {
		uc.logger.Error("Failed to collect metrics snapshot", err)
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	// 2. Анализируем
	profile, err := uc.Evaluate(snapshot)
	if err != nil {
		return nil, err
	}

	// 3. Сохраняем и рассылаем
	if err := uc.Record(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// Evaluate строит профиль по snapshot'у без побочных эффектов
func (uc *AnalyzePerformanceUseCase) Evaluate(snapshot *entity.MetricsSnapshot) (*entity.OptimizationProfile, error) {
	kinds := uc.deps.Engine.AnalyzeKinds(snapshot)

	profile, err := entity.NewOptimizationProfile(snapshot, kinds, uc.deps.Clock())
	if err != nil {
		return nil, fmt.Errorf("failed to build optimization profile: %w", err)
	}
	return profile, nil
}

// Record сохраняет профиль и уведомляет внешние системы.
// Ошибка сохранения в репозиторий возвращается, остальные ошибки только логируются.
func (uc *AnalyzePerformanceUseCase) Record(ctx context.Context, profile *entity.OptimizationProfile) error {
	engine := uc.deps.Engine
	score := engine.HealthScore(profile.Snapshot())
	profileDTO := dto.FromProfile(profile, engine)

	if uc.deps.Repository != nil {
		if err := uc.deps.Repository.Save(ctx, profile); err != nil {
			uc.logger.Error("Failed to save optimization profile", err, "profile_id", profile.ID())
			return fmt.Errorf("failed to save profile: %w", err)
		}
	}

	uc.Remember(ctx, profile)

	if uc.deps.Events != nil {
		event := dto.ProfileAnalyzedEvent{
			ProfileID:       profile.ID(),
			Timestamp:       profile.Timestamp(),
			HealthScore:     score.Int(),
			HealthBand:      string(score.Band()),
			BreachedMetrics: profileDTO.BreachedMetrics,
			Recommendations: profileDTO.Recommendations,
		}
		if err := uc.deps.Events.PublishEvent(ctx, port.SubjectProfileAnalyzed, event); err != nil {
			uc.logger.Warn("Failed to publish profile event", "profile_id", profile.ID(), "error", err.Error())
		}
	}

	if uc.deps.Metrics != nil {
		if err := uc.deps.Metrics.PublishSnapshot(ctx, profile.Snapshot(), score); err != nil {
			uc.logger.Warn("Failed to publish snapshot metrics", "error", err.Error())
		}
	}

	if uc.deps.Observer != nil {
		uc.deps.Observer.ObserveProfile(profile, score)
	}

	if uc.deps.Notifier != nil {
		uc.deps.Notifier.BroadcastProfile(profileDTO)
		uc.sendAlerts(profile)
		uc.logger.Debug("Profile broadcasted to clients", "client_count", uc.deps.Notifier.ClientCount())
	}

	uc.logger.Info("Performance analyzed",
		"profile_id", profile.ID(),
		"health_score", score.Int(),
		"recommendations", len(profileDTO.Recommendations),
	)

	return nil
}

// Remember кладет профиль в vault как последний. Ошибки только логируются.
func (uc *AnalyzePerformanceUseCase) Remember(ctx context.Context, profile *entity.OptimizationProfile) {
	if uc.deps.Vault == nil {
		return
	}
	if err := uc.deps.Vault.Store(ctx, VaultProfileKey, dto.FromProfile(profile, uc.deps.Engine)); err != nil {
		uc.logger.Warn("Failed to store profile in vault", "profile_id", profile.ID(), "error", err.Error())
	}
}

// Remembered читает последний профиль из vault.
// false означает промах, отсутствие vault или поврежденное значение.
func (uc *AnalyzePerformanceUseCase) Remembered(ctx context.Context) (*entity.OptimizationProfile, bool) {
	if uc.deps.Vault == nil {
		return nil, false
	}

	var stored dto.ProfileDTO
	if err := uc.deps.Vault.Retrieve(ctx, VaultProfileKey, &stored); err != nil {
		if !errors.Is(err, port.ErrVaultItemNotFound) {
			uc.logger.Warn("Failed to read profile from vault", "error", err.Error())
		}
		return nil, false
	}

	profile, err := stored.ToEntity()
	if err != nil {
		uc.logger.Warn("Discarding invalid profile from vault", "error", err.Error())
		return nil, false
	}
	return profile, true
}

// Vault возвращает хранилище профиля (может быть nil)
func (uc *AnalyzePerformanceUseCase) Vault() port.Vault {
	return uc.deps.Vault
}

// sendAlerts отправляет alerts для нарушенных порогов
func (uc *AnalyzePerformanceUseCase) sendAlerts(profile *entity.OptimizationProfile) {
	snapshot := profile.Snapshot()
	for _, threshold := range uc.deps.Engine.Thresholds() {
		value := snapshot.MetricValue(threshold.Metric())
		if !threshold.IsBreached(value.Raw()) {
			continue
		}

		alert := dto.NewAlertDTO(threshold, value, profile.Timestamp())
		uc.deps.Notifier.BroadcastAlert(alert)
		uc.logger.Warn("Threshold breached", "metric", threshold.Metric(), "value", value.Raw())
	}
}
