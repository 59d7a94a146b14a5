package dto

import (
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
)

// SnapshotDTO представляет snapshot метрик для передачи между слоями
// Поля-указатели позволяют отличить отсутствующее значение от нуля
type SnapshotDTO struct {
	ResponseTimeMs   *float64  `json:"response_time_ms" yaml:"response_time_ms"`
	MemoryUsageMb    *float64  `json:"memory_usage_mb" yaml:"memory_usage_mb"`
	CacheHitRate     *float64  `json:"cache_hit_rate" yaml:"cache_hit_rate"`
	ErrorRate        *float64  `json:"error_rate" yaml:"error_rate"`
	UserSatisfaction *float64  `json:"user_satisfaction" yaml:"user_satisfaction"`
	CollectedAt      time.Time `json:"collected_at,omitempty" yaml:"collected_at,omitempty"`
}

// FromSnapshot конвертирует Domain Entity в DTO
func FromSnapshot(snapshot *entity.MetricsSnapshot) *SnapshotDTO {
	raw := snapshot.Raw()
	return &SnapshotDTO{
		ResponseTimeMs:   raw.ResponseTimeMs,
		MemoryUsageMb:    raw.MemoryUsageMb,
		CacheHitRate:     raw.CacheHitRate,
		ErrorRate:        raw.ErrorRate,
		UserSatisfaction: raw.UserSatisfaction,
		CollectedAt:      snapshot.CollectedAt(),
	}
}

// ToEntity конвертирует DTO в Domain Entity с валидацией.
// Нулевое CollectedAt заменяется на now.
func (d *SnapshotDTO) ToEntity(now time.Time) (*entity.MetricsSnapshot, error) {
	collectedAt := d.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = now
	}

	return entity.NewMetricsSnapshot(entity.SnapshotValues{
		ResponseTimeMs:   d.ResponseTimeMs,
		MemoryUsageMb:    d.MemoryUsageMb,
		CacheHitRate:     d.CacheHitRate,
		ErrorRate:        d.ErrorRate,
		UserSatisfaction: d.UserSatisfaction,
	}, collectedAt)
}
