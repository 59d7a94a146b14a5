package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/infrastructure/telemetry"
	"github.com/dreschagin/self-configuration/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// MemoryReader возвращает использование памяти в мегабайтах
type MemoryReader interface {
	CollectMb(ctx context.Context) (float64, error)
}

// CombineHits суммирует счетчики нескольких хранилищ. nil пропускаются.
func CombineHits(counters ...port.HitCounter) port.HitCounter {
	present := make(combinedHits, 0, len(counters))
	for _, c := range counters {
		if c != nil {
			present = append(present, c)
		}
	}
	return present
}

type combinedHits []port.HitCounter

func (c combinedHits) HitStats() port.HitStats {
	var total port.HitStats
	for _, counter := range c {
		total = total.Add(counter.HitStats())
	}
	return total
}

// RuntimeSource собирает snapshot из реальной телеметрии процесса
type RuntimeSource struct {
	memory   MemoryReader
	recorder *telemetry.Recorder
	hits     port.HitCounter
	logger   *logger.Logger
	now      func() time.Time
}

// NewRuntimeSource создает RuntimeSource.
// hits может быть nil: тогда доля попаданий считается равной 1.
func NewRuntimeSource(memory MemoryReader, recorder *telemetry.Recorder, hits port.HitCounter, log *logger.Logger) *RuntimeSource {
	if memory == nil {
		memory = NewProcessMemoryCollector()
	}
	if recorder == nil {
		recorder = telemetry.NewRecorder(0)
	}
	return &RuntimeSource{
		memory:   memory,
		recorder: recorder,
		hits:     hits,
		logger:   log,
		now:      time.Now,
	}
}

// Collect собирает все метрики параллельно
func (s *RuntimeSource) Collect(ctx context.Context) (*entity.MetricsSnapshot, error) {
	var (
		memoryMb     float64
		requests     telemetry.RequestStats
		hitRate      = 1.0
		satisfaction float64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		mb, err := s.memory.CollectMb(gctx)
		if err != nil {
			return fmt.Errorf("memory: %w", err)
		}
		memoryMb = mb
		return nil
	})

	g.Go(func() error {
		requests = s.recorder.Requests()
		satisfaction = s.recorder.Satisfaction()
		return nil
	})

	if s.hits != nil {
		g.Go(func() error {
			hitRate = s.hits.HitStats().HitRate()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if s.logger != nil {
			s.logger.Error("Failed to collect runtime metrics", err)
		}
		return nil, fmt.Errorf("failed to collect runtime metrics: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("Runtime metrics collected",
			"requests", requests.Count,
			"memory_mb", memoryMb,
		)
	}

	return entity.NewMetricsSnapshot(entity.SnapshotValues{
		ResponseTimeMs:   entity.Float(requests.AvgResponseMs),
		MemoryUsageMb:    entity.Float(memoryMb),
		CacheHitRate:     entity.Float(hitRate),
		ErrorRate:        entity.Float(requests.ErrorRate),
		UserSatisfaction: entity.Float(satisfaction),
	}, s.now())
}
