package collector

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
)

// Диапазоны mock-метрик
const (
	minResponseTimeMs   = 150.0
	maxResponseTimeMs   = 200.0
	minMemoryUsageMb    = 1600.0
	maxMemoryUsageMb    = 2000.0
	minCacheHitRate     = 0.80
	maxCacheHitRate     = 0.90
	minErrorRate        = 0.0
	maxErrorRate        = 0.01
	minUserSatisfaction = 0.85
	maxUserSatisfaction = 0.95
)

// RandomSource генерирует правдоподобные случайные метрики (mock).
// Все значения лежат в пределах целевых порогов.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewRandomSource создает RandomSource. nil rng заменяется генератором от текущего времени.
func NewRandomSource(rng *rand.Rand) *RandomSource {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomSource{rng: rng, now: time.Now}
}

// NewSeededRandomSource создает воспроизводимый RandomSource
func NewSeededRandomSource(seed int64) *RandomSource {
	return NewRandomSource(rand.New(rand.NewSource(seed)))
}

// Collect генерирует один snapshot
func (s *RandomSource) Collect(ctx context.Context) (*entity.MetricsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// *rand.Rand не потокобезопасен
	s.mu.Lock()
	values := entity.SnapshotValues{
		ResponseTimeMs:   entity.Float(s.between(minResponseTimeMs, maxResponseTimeMs)),
		MemoryUsageMb:    entity.Float(s.between(minMemoryUsageMb, maxMemoryUsageMb)),
		CacheHitRate:     entity.Float(s.between(minCacheHitRate, maxCacheHitRate)),
		ErrorRate:        entity.Float(s.between(minErrorRate, maxErrorRate)),
		UserSatisfaction: entity.Float(s.between(minUserSatisfaction, maxUserSatisfaction)),
	}
	s.mu.Unlock()

	return entity.NewMetricsSnapshot(values, s.now())
}

func (s *RandomSource) between(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
