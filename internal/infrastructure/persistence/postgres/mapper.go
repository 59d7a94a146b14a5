package postgres

import (
	"fmt"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
	"github.com/lib/pq"
)

// ProfileDBModel представляет профиль оптимизации в БД
type ProfileDBModel struct {
	ID               string
	AnalyzedAt       time.Time
	ResponseTimeMs   float64
	MemoryUsageMb    float64
	CacheHitRate     float64
	ErrorRate        float64
	UserSatisfaction float64
	CollectedAt      time.Time
	Recommendations  []string
	Applied          []string
}

// ToDBModel конвертирует Domain Entity в DB Model
func ToDBModel(profile *entity.OptimizationProfile) *ProfileDBModel {
	snapshot := profile.Snapshot()

	return &ProfileDBModel{
		ID:               profile.ID(),
		AnalyzedAt:       profile.Timestamp(),
		ResponseTimeMs:   snapshot.ResponseTimeMs(),
		MemoryUsageMb:    snapshot.MemoryUsageMb(),
		CacheHitRate:     snapshot.CacheHitRate(),
		ErrorRate:        snapshot.ErrorRate(),
		UserSatisfaction: snapshot.UserSatisfaction(),
		CollectedAt:      snapshot.CollectedAt(),
		Recommendations:  kindsToStrings(profile.RecommendationKinds()),
		Applied:          kindsToStrings(profile.AppliedKinds()),
	}
}

// ToEntity конвертирует DB Model в Domain Entity
func ToEntity(model *ProfileDBModel) (*entity.OptimizationProfile, error) {
	snapshot, err := entity.NewMetricsSnapshot(entity.SnapshotValues{
		ResponseTimeMs:   entity.Float(model.ResponseTimeMs),
		MemoryUsageMb:    entity.Float(model.MemoryUsageMb),
		CacheHitRate:     entity.Float(model.CacheHitRate),
		ErrorRate:        entity.Float(model.ErrorRate),
		UserSatisfaction: entity.Float(model.UserSatisfaction),
	}, model.CollectedAt)
	if err != nil {
		return nil, err
	}

	recommendations, err := stringsToKinds(model.Recommendations)
	if err != nil {
		return nil, fmt.Errorf("profile %s: recommendations: %w", model.ID, err)
	}

	applied, err := stringsToKinds(model.Applied)
	if err != nil {
		return nil, fmt.Errorf("profile %s: applied: %w", model.ID, err)
	}

	return entity.ReconstructProfile(model.ID, model.AnalyzedAt, snapshot, recommendations, applied), nil
}

// ScanProfileRow сканирует строку БД в ProfileDBModel
func ScanProfileRow(row interface {
	Scan(dest ...interface{}) error
}) (*ProfileDBModel, error) {
	var model ProfileDBModel

	err := row.Scan(
		&model.ID,
		&model.AnalyzedAt,
		&model.ResponseTimeMs,
		&model.MemoryUsageMb,
		&model.CacheHitRate,
		&model.ErrorRate,
		&model.UserSatisfaction,
		&model.CollectedAt,
		pq.Array(&model.Recommendations),
		pq.Array(&model.Applied),
	)
	if err != nil {
		return nil, err
	}

	return &model, nil
}

func kindsToStrings(kinds []valueobject.OptimizationKind) []string {
	result := make([]string, len(kinds))
	for i, kind := range kinds {
		result[i] = kind.String()
	}
	return result
}

func stringsToKinds(raw []string) ([]valueobject.OptimizationKind, error) {
	result := make([]valueobject.OptimizationKind, len(raw))
	for i, value := range raw {
		kind := valueobject.OptimizationKind(value)
		if err := kind.Validate(); err != nil {
			return nil, err
		}
		result[i] = kind
	}
	return result, nil
}
