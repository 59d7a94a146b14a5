package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/service"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

// criticalDeviation - относительное отклонение от цели, после которого нарушение считается критическим
const criticalDeviation = 0.25

// Analyzer выполняет один анализ системы
type Analyzer interface {
	Execute(ctx context.Context) (*entity.OptimizationProfile, error)
}

// Pruner удаляет устаревшие профили
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service выполняет один цикл: анализ и, если задан retention, очистку истории
type Service struct {
	analyzer  Analyzer
	engine    *service.RecommendationEngine
	pruner    Pruner
	retention time.Duration
	now       func() time.Time
}

// NewService создает сервис цикла. pruner может быть nil.
func NewService(analyzer Analyzer, pruner Pruner, retention time.Duration) *Service {
	return &Service{
		analyzer:  analyzer,
		engine:    service.NewRecommendationEngine(),
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
	}
}

// RunCycle анализирует систему и возвращает сводку
func (s *Service) RunCycle(ctx context.Context) (*CycleSummary, error) {
	profile, err := s.analyzer.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyze system: %w", err)
	}

	summary := s.summarize(profile)

	if s.pruner != nil && s.retention > 0 {
		pruned, err := s.pruner.DeleteOlderThan(ctx, s.now().Add(-s.retention))
		if err != nil {
			return nil, fmt.Errorf("prune profiles: %w", err)
		}
		summary.PrunedProfiles = pruned
	}

	return summary, nil
}

func (s *Service) summarize(profile *entity.OptimizationProfile) *CycleSummary {
	snapshot := profile.Snapshot()
	score := s.engine.HealthScore(snapshot)

	summary := &CycleSummary{
		GeneratedAt:         s.now(),
		ProfileID:           profile.ID(),
		HealthScore:         score.Int(),
		HealthBand:          string(score.Band()),
		RecommendationCount: len(profile.Recommendations()),
		Assessments:         make([]MetricAssessment, 0, len(valueobject.AllMetricNames())),
	}

	for _, threshold := range s.engine.Thresholds() {
		metric := threshold.Metric()
		value := snapshot.Value(metric)

		assessment := MetricAssessment{
			Metric:   metric.String(),
			Value:    value,
			Unit:     metric.Unit(),
			Target:   threshold.Target(),
			Severity: severityFor(threshold, value),
		}
		summary.Assessments = append(summary.Assessments, assessment)

		switch assessment.Severity {
		case SeverityCritical:
			summary.CriticalCount++
		case SeverityWarning:
			summary.WarningCount++
		}
	}

	return summary
}

func severityFor(threshold valueobject.Threshold, value float64) Severity {
	if !threshold.IsBreached(value) {
		return SeverityOK
	}

	target := threshold.Target()
	if target == 0 {
		return SeverityCritical
	}

	deviation := (value - target) / target
	if threshold.Direction() == valueobject.HigherIsBetter {
		deviation = -deviation
	}
	if deviation > criticalDeviation {
		return SeverityCritical
	}
	return SeverityWarning
}
