package optimization

import (
	"sync"
	"time"
)

// Settings is the tunable runtime configuration touched by optimization handlers.
type Settings struct {
	AggressiveCaching   bool          `json:"aggressive_caching"`
	QueryIndexing       bool          `json:"query_indexing"`
	BatchSize           int           `json:"batch_size"`
	PoolSize            int           `json:"pool_size"`
	GCPercent           int           `json:"gc_percent"`
	LowPriorityCacheMB  int           `json:"low_priority_cache_mb"`
	CacheTTL            time.Duration `json:"cache_ttl"`
	PredictiveWarmup    bool          `json:"predictive_warmup"`
	DistributedCache    bool          `json:"distributed_cache"`
	CircuitBreaker      bool          `json:"circuit_breaker"`
	RetryMaxAttempts    int           `json:"retry_max_attempts"`
	RetryBaseBackoff    time.Duration `json:"retry_base_backoff"`
	GracefulDegradation bool          `json:"graceful_degradation"`
	PrecomputeReplies   bool          `json:"precompute_replies"`
	ContextWindow       int           `json:"context_window"`
	ProactiveAssist     bool          `json:"proactive_assist"`
}

// Limits bound how far handlers may push a setting.
const (
	MaxBatchSize          = 256
	MaxPoolSize           = 1024
	MinGCPercent          = 50
	MinLowPriorityCacheMB = 16
	MaxCacheTTL           = time.Hour
	MaxRetryAttempts      = 5
	MaxContextWindow      = 32
)

// DefaultSettings returns the baseline before any optimization was applied.
func DefaultSettings() Settings {
	return Settings{
		BatchSize:          1,
		PoolSize:           64,
		GCPercent:          100,
		LowPriorityCacheMB: 256,
		CacheTTL:           5 * time.Minute,
		RetryMaxAttempts:   1,
		RetryBaseBackoff:   100 * time.Millisecond,
		ContextWindow:      4,
	}
}

// Tuning guards Settings shared between handlers and readers.
type Tuning struct {
	mu       sync.RWMutex
	settings Settings
}

// NewTuning creates a tuning record with the given baseline.
func NewTuning(settings Settings) *Tuning {
	return &Tuning{settings: settings}
}

// Settings returns a copy of the current settings.
func (t *Tuning) Settings() Settings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings
}

// Update applies fn under the write lock. If fn returns an error the settings stay unchanged.
func (t *Tuning) Update(fn func(s *Settings) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.settings
	if err := fn(&next); err != nil {
		return err
	}
	t.settings = next
	return nil
}

// Reset restores the baseline settings.
func (t *Tuning) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = DefaultSettings()
}
