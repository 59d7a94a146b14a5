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

// InsightCacheKey генерирует ключ кеша для рассказа о профиле
func InsightCacheKey(profileID string) string {
	return fmt.Sprintf("insights:%s", profileID)
}

// GetInsightsUseCase возвращает оценку здоровья и рассказ по последнему профилю
// Рассказ кешируется по идентификатору профиля, чтобы фраза тренда не менялась между запросами
type GetInsightsUseCase struct {
	analyze     *AnalyzePerformanceUseCase
	repository  repository.ProfileRepository
	synthesizer *service.NarrativeSynthesizer
	cache       port.Cache
	logger      *logger.Logger
}

// NewGetInsightsUseCase создает новый use case. repository и cache могут быть nil.
func NewGetInsightsUseCase(
	analyze *AnalyzePerformanceUseCase,
	repository repository.ProfileRepository,
	synthesizer *service.NarrativeSynthesizer,
	cache port.Cache,
	logger *logger.Logger,
) *GetInsightsUseCase {
	return &GetInsightsUseCase{
		analyze:     analyze,
		repository:  repository,
		synthesizer: synthesizer,
		cache:       cache,
		logger:      logger,
	}
}

// Execute возвращает insight по последнему профилю; при пустой истории анализ выполняется один раз
func (uc *GetInsightsUseCase) Execute(ctx context.Context) (*dto.InsightDTO, error) {
	profile, err := uc.LatestProfile(ctx)
	if err != nil {
		return nil, err
	}
	return uc.ForProfile(ctx, profile)
}

// LatestProfile возвращает последний профиль: сначала из vault, затем из репозитория.
// Если профиля нет нигде, выполняется новый анализ.
func (uc *GetInsightsUseCase) LatestProfile(ctx context.Context) (*entity.OptimizationProfile, error) {
	if profile, ok := uc.analyze.Remembered(ctx); ok {
		return profile, nil
	}

	if uc.repository != nil {
		profile, err := uc.repository.FindLatest(ctx)
		if err == nil {
			uc.analyze.Remember(ctx, profile)
			return profile, nil
		}
		if !errors.Is(err, repository.ErrProfileNotFound) {
			uc.logger.Error("Failed to load latest profile", err)
			return nil, fmt.Errorf("failed to load latest profile: %w", err)
		}
		uc.logger.Debug("No stored profile, running analysis")
	}

	return uc.analyze.Execute(ctx)
}

// ForProfile формирует insight для конкретного профиля
func (uc *GetInsightsUseCase) ForProfile(ctx context.Context, profile *entity.OptimizationProfile) (*dto.InsightDTO, error) {
	if uc.cache == nil {
		return uc.build(profile), nil
	}

	cacheKey := InsightCacheKey(profile.ID())

	var cached dto.InsightDTO
	if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
		uc.logger.Debug("Cache hit for insights", "profile_id", profile.ID())
		return &cached, nil
	}

	insight := uc.build(profile)

	// Сохраняем в кеш асинхронно, не блокируем ответ
	go func() {
		if err := uc.cache.Set(context.Background(), cacheKey, insight); err != nil {
			uc.logger.Warn("Failed to cache insights", "profile_id", insight.ProfileID, "error", err.Error())
		}
	}()

	return insight, nil
}

func (uc *GetInsightsUseCase) build(profile *entity.OptimizationProfile) *dto.InsightDTO {
	score := uc.analyze.Engine().HealthScore(profile.Snapshot())

	return &dto.InsightDTO{
		ProfileID:       profile.ID(),
		GeneratedAt:     time.Now(),
		HealthScore:     score.Int(),
		HealthBand:      string(score.Band()),
		Emoji:           score.Band().Emoji(),
		Narrative:       uc.synthesizer.Synthesize(profile),
		Recommendations: profile.Recommendations(),
		Snapshot:        dto.FromSnapshot(profile.Snapshot()),
	}
}
