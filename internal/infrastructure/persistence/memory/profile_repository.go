package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/repository"
)

const defaultCapacity = 1000

// ProfileRepository хранит историю профилей в памяти процесса.
// Самые старые профили вытесняются при превышении capacity.
type ProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*entity.OptimizationProfile
	order    []string
	capacity int
}

// NewProfileRepository создает репозиторий с ограничением capacity (0 - значение по умолчанию)
func NewProfileRepository(capacity int) *ProfileRepository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &ProfileRepository{
		profiles: make(map[string]*entity.OptimizationProfile),
		capacity: capacity,
	}
}

// Save сохраняет профиль, заменяя ранее сохраненную версию с тем же id
func (r *ProfileRepository) Save(ctx context.Context, profile *entity.OptimizationProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[profile.ID()]; !exists {
		r.order = append(r.order, profile.ID())
	}
	r.profiles[profile.ID()] = profile

	for len(r.order) > r.capacity {
		delete(r.profiles, r.order[0])
		r.order = r.order[1:]
	}

	return nil
}

// FindByID находит профиль по идентификатору
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*entity.OptimizationProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return profile, nil
}

// FindLatest возвращает профиль с наибольшим временем анализа
func (r *ProfileRepository) FindLatest(ctx context.Context) (*entity.OptimizationProfile, error) {
	recent, err := r.FindRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, repository.ErrProfileNotFound
	}
	return recent[0], nil
}

// FindRecent возвращает последние профили, от новых к старым
func (r *ProfileRepository) FindRecent(ctx context.Context, limit int) ([]*entity.OptimizationProfile, error) {
	r.mu.RLock()
	profiles := make([]*entity.OptimizationProfile, 0, len(r.profiles))
	for _, id := range r.order {
		profiles = append(profiles, r.profiles[id])
	}
	r.mu.RUnlock()

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].Timestamp().After(profiles[j].Timestamp())
	})

	if limit < 0 {
		limit = 0
	}
	if limit < len(profiles) {
		profiles = profiles[:limit]
	}
	return profiles, nil
}
