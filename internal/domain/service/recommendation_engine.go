package service

import (
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

// RecommendationEngine сопоставляет snapshot метрик с таблицей порогов (Domain Service)
// Чистая функция от (snapshot, thresholds), без состояния
type RecommendationEngine struct {
	thresholds []valueobject.Threshold
}

// NewRecommendationEngine создает движок со стандартной таблицей порогов
func NewRecommendationEngine() *RecommendationEngine {
	return &RecommendationEngine{thresholds: valueobject.DefaultThresholds()}
}

// Thresholds возвращает копию таблицы порогов
func (e *RecommendationEngine) Thresholds() []valueobject.Threshold {
	result := make([]valueobject.Threshold, len(e.thresholds))
	copy(result, e.thresholds)
	return result
}

// BreachedMetrics возвращает метрики, вышедшие за порог, в порядке таблицы
func (e *RecommendationEngine) BreachedMetrics(snapshot *entity.MetricsSnapshot) []valueobject.MetricName {
	breached := []valueobject.MetricName{}
	if snapshot == nil {
		return breached
	}

	for _, threshold := range e.thresholds {
		if threshold.IsBreached(snapshot.Value(threshold.Metric())) {
			breached = append(breached, threshold.Metric())
		}
	}
	return breached
}

// AnalyzeKinds возвращает рекомендации в виде вариантов OptimizationKind.
// Для каждой нарушенной метрики добавляются все три ее рекомендации.
func (e *RecommendationEngine) AnalyzeKinds(snapshot *entity.MetricsSnapshot) []valueobject.OptimizationKind {
	kinds := []valueobject.OptimizationKind{}
	for _, metric := range e.BreachedMetrics(snapshot) {
		kinds = append(kinds, valueobject.KindsForMetric(metric)...)
	}
	return kinds
}

// Analyze возвращает тексты рекомендаций. Пустой (не nil) слайс, если пороги не нарушены.
func (e *RecommendationEngine) Analyze(snapshot *entity.MetricsSnapshot) []string {
	kinds := e.AnalyzeKinds(snapshot)
	texts := make([]string, len(kinds))
	for i, kind := range kinds {
		texts[i] = kind.Text()
	}
	return texts
}

// HealthScore вычисляет оценку здоровья snapshot'а по таблице порогов движка
func (e *RecommendationEngine) HealthScore(snapshot *entity.MetricsSnapshot) valueobject.HealthScore {
	score := int(valueobject.MaxHealthScore)
	for _, threshold := range e.thresholds {
		if threshold.IsBreached(snapshot.Value(threshold.Metric())) {
			score -= threshold.Penalty()
		}
	}
	return valueobject.NewHealthScore(score)
}

// CalculateHealthScore вычисляет оценку здоровья по стандартной таблице:
// 100 минус сумма штрафов нарушенных метрик, не ниже 0
func CalculateHealthScore(snapshot *entity.MetricsSnapshot) valueobject.HealthScore {
	return NewRecommendationEngine().HealthScore(snapshot)
}
