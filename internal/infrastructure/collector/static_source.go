package collector

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"gopkg.in/yaml.v3"
)

// StaticSource возвращает один и тот же набор значений при каждом вызове.
// Время снятия берется от часов source'а, если в фикстуре оно не задано.
type StaticSource struct {
	values      entity.SnapshotValues
	collectedAt time.Time
	now         func() time.Time
}

// NewStaticSource создает StaticSource из готового snapshot'а
func NewStaticSource(snapshot *entity.MetricsSnapshot) *StaticSource {
	return &StaticSource{
		values:      snapshot.Raw(),
		collectedAt: snapshot.CollectedAt(),
		now:         time.Now,
	}
}

// LoadStaticSource читает YAML-фикстуру snapshot'а.
// Отсутствующие поля приводят к ошибке при загрузке, а не при первом Collect.
func LoadStaticSource(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot fixture: %w", err)
	}
	return ParseStaticSource(data)
}

// ParseStaticSource разбирает YAML-фикстуру snapshot'а
func ParseStaticSource(data []byte) (*StaticSource, error) {
	var fixture dto.SnapshotDTO
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot fixture: %w", err)
	}

	if _, err := fixture.ToEntity(time.Now()); err != nil {
		return nil, err
	}

	return &StaticSource{
		values: entity.SnapshotValues{
			ResponseTimeMs:   fixture.ResponseTimeMs,
			MemoryUsageMb:    fixture.MemoryUsageMb,
			CacheHitRate:     fixture.CacheHitRate,
			ErrorRate:        fixture.ErrorRate,
			UserSatisfaction: fixture.UserSatisfaction,
		},
		collectedAt: fixture.CollectedAt,
		now:         time.Now,
	}, nil
}

// Collect возвращает зафиксированный snapshot
func (s *StaticSource) Collect(ctx context.Context) (*entity.MetricsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collectedAt := s.collectedAt
	if collectedAt.IsZero() {
		collectedAt = s.now()
	}
	return entity.NewMetricsSnapshot(s.values, collectedAt)
}
