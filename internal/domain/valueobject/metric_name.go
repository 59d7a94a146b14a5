package valueobject

import "errors"

// MetricName представляет имя метрики snapshot'а (Value Object)
type MetricName string

const (
	ResponseTime     MetricName = "response_time"
	MemoryUsage      MetricName = "memory_usage"
	CacheHitRate     MetricName = "cache_hit_rate"
	ErrorRate        MetricName = "error_rate"
	UserSatisfaction MetricName = "user_satisfaction"
)

// Validate проверяет валидность имени метрики
func (mn MetricName) Validate() error {
	switch mn {
	case ResponseTime, MemoryUsage, CacheHitRate, ErrorRate, UserSatisfaction:
		return nil
	default:
		return errors.New("invalid metric name")
	}
}

// String возвращает строковое представление имени метрики
func (mn MetricName) String() string {
	return string(mn)
}

// FieldName возвращает внешнее имя метрики с единицей измерения.
// Совпадает с полями SnapshotDTO, колонками Postgres и именами datum'ов CloudWatch.
func (mn MetricName) FieldName() string {
	switch mn {
	case ResponseTime:
		return "response_time_ms"
	case MemoryUsage:
		return "memory_usage_mb"
	default:
		return string(mn)
	}
}

// Unit возвращает единицу измерения метрики
func (mn MetricName) Unit() string {
	switch mn {
	case ResponseTime:
		return "ms"
	case MemoryUsage:
		return "MB"
	default:
		return "ratio"
	}
}

// IsRatio сообщает, что значение метрики лежит в диапазоне [0, 1]
func (mn MetricName) IsRatio() bool {
	switch mn {
	case CacheHitRate, ErrorRate, UserSatisfaction:
		return true
	default:
		return false
	}
}

// AllMetricNames возвращает имена метрик в порядке таблицы порогов
func AllMetricNames() []MetricName {
	return []MetricName{ResponseTime, MemoryUsage, CacheHitRate, ErrorRate, UserSatisfaction}
}
