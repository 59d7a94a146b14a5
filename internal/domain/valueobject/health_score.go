package valueobject

// HealthScore представляет итоговую оценку здоровья системы в диапазоне [0, 100]
type HealthScore int

// HealthBand представляет диапазон оценки здоровья
type HealthBand string

const (
	BandExcellent HealthBand = "excellent"
	BandGood      HealthBand = "good"
	BandPoor      HealthBand = "poor"

	MaxHealthScore HealthScore = 100
)

// NewHealthScore создает HealthScore, ограничивая значение диапазоном [0, 100]
func NewHealthScore(value int) HealthScore {
	if value < 0 {
		return 0
	}
	if value > int(MaxHealthScore) {
		return MaxHealthScore
	}
	return HealthScore(value)
}

// Int возвращает числовое значение
func (s HealthScore) Int() int {
	return int(s)
}

// Band возвращает диапазон оценки (>=90 / >=70 / остальное)
func (s HealthScore) Band() HealthBand {
	switch {
	case s >= 90:
		return BandExcellent
	case s >= 70:
		return BandGood
	default:
		return BandPoor
	}
}

// Emoji возвращает индикатор для чата
func (b HealthBand) Emoji() string {
	switch b {
	case BandExcellent:
		return "🟢"
	case BandGood:
		return "🟡"
	default:
		return "🔴"
	}
}
