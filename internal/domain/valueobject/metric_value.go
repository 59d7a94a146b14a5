package valueobject

import (
	"errors"
	"fmt"
	"math"
)

// MetricValue представляет значение метрики snapshot'а (Value Object)
// Иммутабельный объект
type MetricValue struct {
	name  MetricName
	value float64
}

// NewMetricValue создает новый MetricValue с валидацией
func NewMetricValue(name MetricName, value float64) (MetricValue, error) {
	if err := name.Validate(); err != nil {
		return MetricValue{}, err
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MetricValue{}, fmt.Errorf("%s: value must be finite", name)
	}

	if value < 0 {
		return MetricValue{}, fmt.Errorf("%s: %w", name, errors.New("value cannot be negative"))
	}

	if name.IsRatio() && value > 1 {
		return MetricValue{}, fmt.Errorf("%s: ratio must be within [0, 1], got %g", name, value)
	}

	return MetricValue{
		name:  name,
		value: value,
	}, nil
}

// Name возвращает имя метрики
func (mv MetricValue) Name() MetricName {
	return mv.name
}

// Raw возвращает числовое значение
func (mv MetricValue) Raw() float64 {
	return mv.value
}

// Unit возвращает единицу измерения
func (mv MetricValue) Unit() string {
	return mv.name.Unit()
}

// String возвращает строковое представление
func (mv MetricValue) String() string {
	if mv.name.IsRatio() {
		return fmt.Sprintf("%.2f%%", mv.value*100)
	}
	return fmt.Sprintf("%.2f %s", mv.value, mv.Unit())
}

// Equals сравнивает два MetricValue
func (mv MetricValue) Equals(other MetricValue) bool {
	return mv.name == other.name && mv.value == other.value
}
