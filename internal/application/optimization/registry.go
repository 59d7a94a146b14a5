package optimization

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

// Handler applies one optimization to the tuning record.
type Handler func(ctx context.Context, tuning *Tuning) error

// Registry maps optimization kinds to their handlers.
type Registry struct {
	handlers map[valueobject.OptimizationKind]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[valueobject.OptimizationKind]Handler)}
}

// Register binds a handler to a kind, replacing any previous binding.
func (r *Registry) Register(kind valueobject.OptimizationKind, handler Handler) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("nil handler for %s", kind)
	}
	r.handlers[kind] = handler
	return nil
}

// Handler returns the handler bound to kind.
func (r *Registry) Handler(kind valueobject.OptimizationKind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Validate reports every known kind without a handler.
func (r *Registry) Validate() error {
	var missing []string
	for _, kind := range valueobject.AllOptimizationKinds() {
		if _, ok := r.handlers[kind]; !ok {
			missing = append(missing, kind.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("unmapped optimization kinds: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DefaultRegistry returns a registry with a handler for every optimization kind.
func DefaultRegistry() *Registry {
	return &Registry{handlers: defaultHandlers()}
}

func enable(field func(s *Settings) *bool, name string) Handler {
	return func(_ context.Context, tuning *Tuning) error {
		return tuning.Update(func(s *Settings) error {
			flag := field(s)
			if *flag {
				return inEffect(name)
			}
			*flag = true
			return nil
		})
	}
}

func defaultHandlers() map[valueobject.OptimizationKind]Handler {
	return map[valueobject.OptimizationKind]Handler{
		valueobject.AggressiveCaching: enable(func(s *Settings) *bool { return &s.AggressiveCaching }, "aggressive caching"),
		valueobject.QueryIndexing:     enable(func(s *Settings) *bool { return &s.QueryIndexing }, "query indexing"),
		valueobject.RequestBatching: func(_ context.Context, t *Tuning) error {
			return t.Update(func(s *Settings) error {
				if s.BatchSize >= MaxBatchSize {
					return inEffect("batch size at maximum,")
				}
				s.BatchSize = min(max(s.BatchSize*4, 8), MaxBatchSize)
				return nil
			})
		},
		valueobject.MemoryPooling: func(_ context.Context, t *Tuning) error {
			return t.Update(func(s *Settings) error {
				if s.PoolSize >= MaxPoolSize {
					return inEffect("object pool at maximum size,")
				}
				s.PoolSize = min(s.PoolSize*2, MaxPoolSize)
				return nil
			})
		},
		valueobject.GCOptimization: func(_ context.Context, t *Tuning) error {
			return t.Update(func(s *Settings) error {
				if s.GCPercent <= MinGCPercent {
					return inEffect("gc target at minimum,")
				}
				s.GCPercent = max(s.GCPercent-25, MinGCPercent)
				return nil
			})
		},
		valueobject.LowPriorityCacheCut: func(_ context.Context, t *Tuning) error {
			return t.Update(func(s *Settings) error {
				if s.LowPriorityCacheMB <= MinLowPriorityCacheMB {
					return inEffect("low-priority cache at minimum,")
				}
				s.LowPriorityCacheMB = max(s.LowPriorityCacheMB/2, MinLowPriorityCacheMB)
				return nil
			})
		},
		valueobject.AdaptiveCacheTTL: func(_ context.Context, t *Tuning) error {
			return t.Update(func(s *Settings) error {
				if s.CacheTTL >= MaxCacheTTL {
					return inEffect("cache ttl at maximum,")
				}
				next := s.CacheTTL * 2
				if next > MaxCacheTTL {
					next = MaxCacheTTL
				}
				s.CacheTTL = next
				return nil
			})
		},
		valueobject.PredictiveCacheWarmup: enable(func(s *Settings) *bool { return &s.PredictiveWarmup }, "predictive warmup"),
		valueobject.DistributedCaching:    enable(func(s *Settings) *bool { return &s.DistributedCache }, "distributed caching"),
		valueobject.CircuitBreakers:       enable(func(s *Settings) *bool { return &s.CircuitBreaker }, "circuit breakers"),
		valueobject.RetryWithBackoff: func(_ context.Context, t *Tuning) error {
			return t.Update(func(s *Settings) error {
				if s.RetryMaxAttempts >= MaxRetryAttempts {
					return inEffect("retry policy at maximum attempts,")
				}
				s.RetryMaxAttempts = MaxRetryAttempts
				s.RetryBaseBackoff = 200 * time.Millisecond
				return nil
			})
		},
		valueobject.GracefulDegradation: enable(func(s *Settings) *bool { return &s.GracefulDegradation }, "graceful degradation"),
		valueobject.PrecomputedReplies:  enable(func(s *Settings) *bool { return &s.PrecomputeReplies }, "reply pre-computation"),
		valueobject.ContextRelevance: func(_ context.Context, t *Tuning) error {
			return t.Update(func(s *Settings) error {
				if s.ContextWindow >= MaxContextWindow {
					return inEffect("context window at maximum,")
				}
				s.ContextWindow = min(s.ContextWindow*2, MaxContextWindow)
				return nil
			})
		},
		valueobject.ProactiveAssist: enable(func(s *Settings) *bool { return &s.ProactiveAssist }, "proactive assistance"),
	}
}
