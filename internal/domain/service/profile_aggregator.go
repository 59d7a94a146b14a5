package service

import (
	"errors"
	"sort"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

// ErrNoProfiles возвращается при агрегации пустой истории
var ErrNoProfiles = errors.New("no profiles to aggregate")

// MetricSummary содержит агрегаты одной метрики по истории профилей
type MetricSummary struct {
	Metric  valueobject.MetricName
	Average float64
	Min     float64
	Max     float64
	P95     float64
}

// ProfileAggregator предоставляет сервисы для агрегации истории профилей (Domain Service)
// Используется при формировании архивных отчетов
type ProfileAggregator struct{}

// NewProfileAggregator создает новый ProfileAggregator
func NewProfileAggregator() *ProfileAggregator {
	return &ProfileAggregator{}
}

// Summarize вычисляет агрегаты по каждой метрике в порядке таблицы порогов
func (a *ProfileAggregator) Summarize(profiles []*entity.OptimizationProfile) ([]MetricSummary, error) {
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}

	summaries := make([]MetricSummary, 0, len(valueobject.AllMetricNames()))
	for _, name := range valueobject.AllMetricNames() {
		values := make([]float64, len(profiles))
		for i, p := range profiles {
			values[i] = p.Snapshot().Value(name)
		}

		summaries = append(summaries, MetricSummary{
			Metric:  name,
			Average: average(values),
			Min:     minOf(values),
			Max:     maxOf(values),
			P95:     percentile(values, 95),
		})
	}

	return summaries, nil
}

// BreachCounts считает, сколько раз каждая метрика выходила за порог
func (a *ProfileAggregator) BreachCounts(engine *RecommendationEngine, profiles []*entity.OptimizationProfile) map[valueobject.MetricName]int {
	counts := make(map[valueobject.MetricName]int)
	for _, p := range profiles {
		for _, metric := range engine.BreachedMetrics(p.Snapshot()) {
			counts[metric]++
		}
	}
	return counts
}

// SortByTime сортирует профили по времени анализа
func (a *ProfileAggregator) SortByTime(profiles []*entity.OptimizationProfile, descending bool) []*entity.OptimizationProfile {
	sorted := make([]*entity.OptimizationProfile, len(profiles))
	copy(sorted, profiles)

	sort.Slice(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].Timestamp().After(sorted[j].Timestamp())
		}
		return sorted[i].Timestamp().Before(sorted[j].Timestamp())
	})

	return sorted
}

func average(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minOf(values []float64) float64 {
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func maxOf(values []float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	index := int(float64(len(sorted)-1) * (p / 100.0))
	return sorted[index]
}
