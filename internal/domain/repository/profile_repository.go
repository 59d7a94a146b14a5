package repository

import (
	"context"
	"errors"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
)

// ErrProfileNotFound возвращается, когда профиль отсутствует в хранилище
var ErrProfileNotFound = errors.New("optimization profile not found")

// ProfileRepository определяет интерфейс для работы с историей профилей оптимизации (Port)
// Реализация будет в Infrastructure слое
type ProfileRepository interface {
	// Save сохраняет профиль (upsert по идентификатору)
	Save(ctx context.Context, profile *entity.OptimizationProfile) error

	// FindByID находит профиль по идентификатору
	FindByID(ctx context.Context, id string) (*entity.OptimizationProfile, error)

	// FindLatest возвращает самый свежий профиль или ErrProfileNotFound
	FindLatest(ctx context.Context) (*entity.OptimizationProfile, error)

	// FindRecent возвращает последние профили, от новых к старым
	FindRecent(ctx context.Context, limit int) ([]*entity.OptimizationProfile, error)
}
