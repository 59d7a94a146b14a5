package valueobject

import "fmt"

// Direction задает, в какую сторону значение метрики считается хорошим
type Direction int

const (
	LowerIsBetter Direction = iota
	HigherIsBetter
)

// String возвращает строковое представление направления
func (d Direction) String() string {
	if d == HigherIsBetter {
		return "higher_is_better"
	}
	return "lower_is_better"
}

// Threshold представляет целевое значение метрики (Value Object)
// Иммутабельный объект
type Threshold struct {
	metric    MetricName
	target    float64
	direction Direction
	penalty   int
}

// NewThreshold создает новый Threshold с валидацией
func NewThreshold(metric MetricName, target float64, direction Direction, penalty int) (Threshold, error) {
	if err := metric.Validate(); err != nil {
		return Threshold{}, err
	}
	if penalty < 0 {
		return Threshold{}, fmt.Errorf("penalty cannot be negative: %d", penalty)
	}

	return Threshold{
		metric:    metric,
		target:    target,
		direction: direction,
		penalty:   penalty,
	}, nil
}

// Metric возвращает имя метрики
func (t Threshold) Metric() MetricName {
	return t.metric
}

// Target возвращает целевое значение
func (t Threshold) Target() float64 {
	return t.target
}

// Direction возвращает направление сравнения
func (t Threshold) Direction() Direction {
	return t.direction
}

// Penalty возвращает штраф к health score при нарушении порога
func (t Threshold) Penalty() int {
	return t.penalty
}

// IsBreached проверяет, нарушает ли значение порог.
// Сравнение строгое: значение, равное target, в пределах нормы.
func (t Threshold) IsBreached(value float64) bool {
	if t.direction == HigherIsBetter {
		return value < t.target
	}
	return value > t.target
}

// String возвращает строковое представление порога
func (t Threshold) String() string {
	op := "<="
	if t.direction == HigherIsBetter {
		op = ">="
	}
	return fmt.Sprintf("%s %s %g %s", t.metric, op, t.target, t.metric.Unit())
}

// DefaultThresholds возвращает таблицу порогов в порядке определения:
// response time, memory, cache, errors, satisfaction.
// Каждый вызов возвращает новую копию таблицы.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{metric: ResponseTime, target: 200, direction: LowerIsBetter, penalty: 10},
		{metric: MemoryUsage, target: 2048, direction: LowerIsBetter, penalty: 10},
		{metric: CacheHitRate, target: 0.8, direction: HigherIsBetter, penalty: 10},
		{metric: ErrorRate, target: 0.01, direction: LowerIsBetter, penalty: 15},
		{metric: UserSatisfaction, target: 0.9, direction: HigherIsBetter, penalty: 5},
	}
}

// ThresholdFor возвращает порог из таблицы по умолчанию для указанной метрики
func ThresholdFor(metric MetricName) (Threshold, bool) {
	for _, t := range DefaultThresholds() {
		if t.metric == metric {
			return t, true
		}
	}
	return Threshold{}, false
}
