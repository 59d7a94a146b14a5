package entity

import (
	"errors"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
	"github.com/google/uuid"
)

// OptimizationProfile представляет результат одного цикла анализа (Aggregate Root)
// Иммутабелен: WithApplied возвращает новый профиль
type OptimizationProfile struct {
	id              string
	timestamp       time.Time
	snapshot        *MetricsSnapshot
	recommendations []valueobject.OptimizationKind
	applied         []valueobject.OptimizationKind
}

// NewOptimizationProfile создает новый профиль (Factory Method)
func NewOptimizationProfile(
	snapshot *MetricsSnapshot,
	recommendations []valueobject.OptimizationKind,
	timestamp time.Time,
) (*OptimizationProfile, error) {
	if snapshot == nil {
		return nil, errors.New("snapshot cannot be nil")
	}

	for _, kind := range recommendations {
		if err := kind.Validate(); err != nil {
			return nil, err
		}
	}

	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &OptimizationProfile{
		id:              uuid.New().String(),
		timestamp:       timestamp,
		snapshot:        snapshot,
		recommendations: cloneKinds(recommendations),
		applied:         []valueobject.OptimizationKind{},
	}, nil
}

// ReconstructProfile восстанавливает профиль из хранилища (для Repository)
func ReconstructProfile(
	id string,
	timestamp time.Time,
	snapshot *MetricsSnapshot,
	recommendations []valueobject.OptimizationKind,
	applied []valueobject.OptimizationKind,
) *OptimizationProfile {
	return &OptimizationProfile{
		id:              id,
		timestamp:       timestamp,
		snapshot:        snapshot,
		recommendations: cloneKinds(recommendations),
		applied:         cloneKinds(applied),
	}
}

// ID возвращает идентификатор профиля
func (p *OptimizationProfile) ID() string {
	return p.id
}

// Timestamp возвращает время анализа
func (p *OptimizationProfile) Timestamp() time.Time {
	return p.timestamp
}

// Snapshot возвращает snapshot метрик
func (p *OptimizationProfile) Snapshot() *MetricsSnapshot {
	return p.snapshot
}

// RecommendationKinds возвращает рекомендации в виде вариантов OptimizationKind
func (p *OptimizationProfile) RecommendationKinds() []valueobject.OptimizationKind {
	return cloneKinds(p.recommendations)
}

// Recommendations возвращает тексты рекомендаций в порядке таблицы порогов
func (p *OptimizationProfile) Recommendations() []string {
	return kindTexts(p.recommendations)
}

// AppliedKinds возвращает примененные оптимизации
func (p *OptimizationProfile) AppliedKinds() []valueobject.OptimizationKind {
	return cloneKinds(p.applied)
}

// AppliedOptimizations возвращает тексты примененных оптимизаций
func (p *OptimizationProfile) AppliedOptimizations() []string {
	return kindTexts(p.applied)
}

// Domain Methods (бизнес-логика)

// WithApplied возвращает копию профиля с дополненным списком примененных оптимизаций
func (p *OptimizationProfile) WithApplied(kinds ...valueobject.OptimizationKind) *OptimizationProfile {
	applied := make([]valueobject.OptimizationKind, 0, len(p.applied)+len(kinds))
	applied = append(applied, p.applied...)
	applied = append(applied, kinds...)

	return &OptimizationProfile{
		id:              p.id,
		timestamp:       p.timestamp,
		snapshot:        p.snapshot,
		recommendations: cloneKinds(p.recommendations),
		applied:         applied,
	}
}

// HasRecommendations сообщает, есть ли рекомендации
func (p *OptimizationProfile) HasRecommendations() bool {
	return len(p.recommendations) > 0
}

// Age возвращает возраст профиля относительно now
func (p *OptimizationProfile) Age(now time.Time) time.Duration {
	return now.Sub(p.timestamp)
}

func cloneKinds(kinds []valueobject.OptimizationKind) []valueobject.OptimizationKind {
	result := make([]valueobject.OptimizationKind, len(kinds))
	copy(result, kinds)
	return result
}

func kindTexts(kinds []valueobject.OptimizationKind) []string {
	texts := make([]string, len(kinds))
	for i, kind := range kinds {
		texts[i] = kind.Text()
	}
	return texts
}
