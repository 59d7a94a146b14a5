package dto

import (
	"fmt"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/service"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

// ProfileDTO представляет профиль оптимизации
// Используется для REST API и рассылки через WebSocket
type ProfileDTO struct {
	ID                   string       `json:"id"`
	Timestamp            time.Time    `json:"timestamp"`
	Snapshot             *SnapshotDTO `json:"snapshot"`
	Recommendations      []string     `json:"recommendations"`
	RecommendationKinds  []string     `json:"recommendation_kinds"`
	AppliedOptimizations []string     `json:"applied_optimizations"`
	AppliedKinds         []string     `json:"applied_kinds"`
	BreachedMetrics      []string     `json:"breached_metrics"`
	HealthScore          int          `json:"health_score"`
	HealthBand           string       `json:"health_band"`
}

// FromProfile конвертирует профиль в DTO
func FromProfile(profile *entity.OptimizationProfile, engine *service.RecommendationEngine) *ProfileDTO {
	kinds := profile.RecommendationKinds()
	kindIDs := make([]string, len(kinds))
	for i, kind := range kinds {
		kindIDs[i] = kind.String()
	}

	breached := engine.BreachedMetrics(profile.Snapshot())
	breachedNames := make([]string, len(breached))
	for i, metric := range breached {
		breachedNames[i] = metric.String()
	}

	applied := profile.AppliedKinds()
	appliedIDs := make([]string, len(applied))
	for i, kind := range applied {
		appliedIDs[i] = kind.String()
	}

	score := engine.HealthScore(profile.Snapshot())

	return &ProfileDTO{
		ID:                   profile.ID(),
		Timestamp:            profile.Timestamp(),
		Snapshot:             FromSnapshot(profile.Snapshot()),
		Recommendations:      profile.Recommendations(),
		RecommendationKinds:  kindIDs,
		AppliedOptimizations: profile.AppliedOptimizations(),
		AppliedKinds:         appliedIDs,
		BreachedMetrics:      breachedNames,
		HealthScore:          score.Int(),
		HealthBand:           string(score.Band()),
	}
}

// ToEntity восстанавливает профиль из DTO (чтение из vault)
func (d *ProfileDTO) ToEntity() (*entity.OptimizationProfile, error) {
	if d.ID == "" || d.Snapshot == nil {
		return nil, fmt.Errorf("profile dto is incomplete")
	}

	snapshot, err := d.Snapshot.ToEntity(d.Timestamp)
	if err != nil {
		return nil, err
	}

	recommendations, err := parseKinds(d.RecommendationKinds)
	if err != nil {
		return nil, fmt.Errorf("profile %s: recommendations: %w", d.ID, err)
	}
	applied, err := parseKinds(d.AppliedKinds)
	if err != nil {
		return nil, fmt.Errorf("profile %s: applied: %w", d.ID, err)
	}

	return entity.ReconstructProfile(d.ID, d.Timestamp, snapshot, recommendations, applied), nil
}

func parseKinds(raw []string) ([]valueobject.OptimizationKind, error) {
	kinds := make([]valueobject.OptimizationKind, len(raw))
	for i, value := range raw {
		kind, err := valueobject.ParseOptimizationKind(value)
		if err != nil {
			return nil, err
		}
		kinds[i] = kind
	}
	return kinds, nil
}

// AlertDTO представляет alert о нарушении порога для отправки клиентам
type AlertDTO struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "warning", "critical"
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Target    float64   `json:"target"`
	Message   string    `json:"message"`
}

// NewAlertDTO создает alert для нарушенного порога.
// Самый тяжелый штраф (error rate) считается критическим.
func NewAlertDTO(threshold valueobject.Threshold, value valueobject.MetricValue, at time.Time) *AlertDTO {
	level := "warning"
	if threshold.Penalty() >= 15 {
		level = "critical"
	}

	target, _ := valueobject.NewMetricValue(threshold.Metric(), threshold.Target())

	return &AlertDTO{
		Timestamp: at,
		Level:     level,
		Metric:    threshold.Metric().String(),
		Value:     value.Raw(),
		Target:    threshold.Target(),
		Message:   fmt.Sprintf("%s is outside target: %s (target %s)", threshold.Metric(), value, target),
	}
}

// InsightDTO представляет оценку здоровья и рассказ о состоянии системы
type InsightDTO struct {
	ProfileID       string       `json:"profile_id"`
	GeneratedAt     time.Time    `json:"generated_at"`
	HealthScore     int          `json:"health_score"`
	HealthBand      string       `json:"health_band"`
	Emoji           string       `json:"emoji"`
	Narrative       string       `json:"narrative"`
	Recommendations []string     `json:"recommendations"`
	Snapshot        *SnapshotDTO `json:"snapshot"`
}

// ReportDTO представляет архивный отчет
type ReportDTO struct {
	ReportID    string    `json:"report_id"`
	ProfileID   string    `json:"profile_id,omitempty"`
	S3Key       string    `json:"s3_key"`
	URL         string    `json:"url"`
	HealthScore int       `json:"health_score"`
	HealthBand  string    `json:"health_band,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportListDTO представляет страницу списка отчетов
type ReportListDTO struct {
	Items      []ReportDTO `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
