package port

import (
	"context"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

// MetricsPublisher defines the interface for publishing snapshot metrics to external observability platforms.
type MetricsPublisher interface {
	// PublishSnapshot publishes the five snapshot values together with the derived health score.
	// Implementations may buffer datums until Flush or their own flush interval.
	PublishSnapshot(ctx context.Context, snapshot *entity.MetricsSnapshot, score valueobject.HealthScore) error

	// Flush forces immediate publication of any buffered metrics.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}

// ProfileObserver receives every analyzed profile for in-process instrumentation (Prometheus gauges).
type ProfileObserver interface {
	ObserveProfile(profile *entity.OptimizationProfile, score valueobject.HealthScore)
	ObserveOptimization(kind valueobject.OptimizationKind, success bool)
}
