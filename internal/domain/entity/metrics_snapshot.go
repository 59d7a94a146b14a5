package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

// ErrInvalidSnapshot возвращается при попытке создать snapshot из некорректных данных
var ErrInvalidSnapshot = errors.New("invalid metrics snapshot")

// SnapshotValues содержит сырые значения пяти метрик.
// nil означает отсутствующее поле.
type SnapshotValues struct {
	ResponseTimeMs   *float64
	MemoryUsageMb    *float64
	CacheHitRate     *float64
	ErrorRate        *float64
	UserSatisfaction *float64
}

// Float возвращает указатель на значение (хелпер для построения SnapshotValues)
func Float(v float64) *float64 {
	return &v
}

// MetricsSnapshot представляет один снятый набор метрик системы
// Иммутабелен после создания
type MetricsSnapshot struct {
	values      map[valueobject.MetricName]valueobject.MetricValue
	collectedAt time.Time
}

// NewMetricsSnapshot создает snapshot с валидацией всех пяти значений (Factory Method)
func NewMetricsSnapshot(raw SnapshotValues, collectedAt time.Time) (*MetricsSnapshot, error) {
	if collectedAt.IsZero() {
		return nil, fmt.Errorf("%w: collected_at cannot be zero", ErrInvalidSnapshot)
	}

	fields := map[valueobject.MetricName]*float64{
		valueobject.ResponseTime:     raw.ResponseTimeMs,
		valueobject.MemoryUsage:      raw.MemoryUsageMb,
		valueobject.CacheHitRate:     raw.CacheHitRate,
		valueobject.ErrorRate:        raw.ErrorRate,
		valueobject.UserSatisfaction: raw.UserSatisfaction,
	}

	values := make(map[valueobject.MetricName]valueobject.MetricValue, len(fields))
	for _, name := range valueobject.AllMetricNames() {
		field := fields[name]
		if field == nil {
			return nil, fmt.Errorf("%w: missing field %s", ErrInvalidSnapshot, name)
		}

		value, err := valueobject.NewMetricValue(name, *field)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		values[name] = value
	}

	return &MetricsSnapshot{
		values:      values,
		collectedAt: collectedAt,
	}, nil
}

// MustSnapshot создает snapshot из пяти значений и паникует при ошибке.
// Используется в тестах и для фикстур.
func MustSnapshot(responseTime, memoryUsage, cacheHitRate, errorRate, userSatisfaction float64) *MetricsSnapshot {
	snapshot, err := NewMetricsSnapshot(SnapshotValues{
		ResponseTimeMs:   Float(responseTime),
		MemoryUsageMb:    Float(memoryUsage),
		CacheHitRate:     Float(cacheHitRate),
		ErrorRate:        Float(errorRate),
		UserSatisfaction: Float(userSatisfaction),
	}, time.Now())
	if err != nil {
		panic(err)
	}
	return snapshot
}

// Value возвращает значение метрики по имени
func (s *MetricsSnapshot) Value(name valueobject.MetricName) float64 {
	return s.values[name].Raw()
}

// MetricValue возвращает Value Object метрики
func (s *MetricsSnapshot) MetricValue(name valueobject.MetricName) valueobject.MetricValue {
	return s.values[name]
}

// Values возвращает значения в порядке таблицы порогов
func (s *MetricsSnapshot) Values() []valueobject.MetricValue {
	result := make([]valueobject.MetricValue, 0, len(s.values))
	for _, name := range valueobject.AllMetricNames() {
		result = append(result, s.values[name])
	}
	return result
}

// ResponseTimeMs возвращает время ответа в миллисекундах
func (s *MetricsSnapshot) ResponseTimeMs() float64 {
	return s.Value(valueobject.ResponseTime)
}

// MemoryUsageMb возвращает использование памяти в мегабайтах
func (s *MetricsSnapshot) MemoryUsageMb() float64 {
	return s.Value(valueobject.MemoryUsage)
}

// CacheHitRate возвращает долю попаданий в кеш
func (s *MetricsSnapshot) CacheHitRate() float64 {
	return s.Value(valueobject.CacheHitRate)
}

// ErrorRate возвращает долю ошибок
func (s *MetricsSnapshot) ErrorRate() float64 {
	return s.Value(valueobject.ErrorRate)
}

// UserSatisfaction возвращает удовлетворенность пользователей
func (s *MetricsSnapshot) UserSatisfaction() float64 {
	return s.Value(valueobject.UserSatisfaction)
}

// CollectedAt возвращает время снятия snapshot'а
func (s *MetricsSnapshot) CollectedAt() time.Time {
	return s.collectedAt
}

// Raw возвращает значения snapshot'а в виде SnapshotValues
func (s *MetricsSnapshot) Raw() SnapshotValues {
	return SnapshotValues{
		ResponseTimeMs:   Float(s.ResponseTimeMs()),
		MemoryUsageMb:    Float(s.MemoryUsageMb()),
		CacheHitRate:     Float(s.CacheHitRate()),
		ErrorRate:        Float(s.ErrorRate()),
		UserSatisfaction: Float(s.UserSatisfaction()),
	}
}
