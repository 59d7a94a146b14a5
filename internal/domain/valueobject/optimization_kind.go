package valueobject

import (
	"errors"
	"strings"
)

// OptimizationKind представляет конкретную рекомендацию по оптимизации (Value Object)
type OptimizationKind string

const (
	// Response time
	AggressiveCaching OptimizationKind = "aggressive_caching"
	QueryIndexing     OptimizationKind = "query_indexing"
	RequestBatching   OptimizationKind = "request_batching"

	// Memory
	MemoryPooling       OptimizationKind = "memory_pooling"
	GCOptimization      OptimizationKind = "gc_optimization"
	LowPriorityCacheCut OptimizationKind = "low_priority_cache_cut"

	// Cache
	AdaptiveCacheTTL      OptimizationKind = "adaptive_cache_ttl"
	PredictiveCacheWarmup OptimizationKind = "predictive_cache_warmup"
	DistributedCaching    OptimizationKind = "distributed_caching"

	// Errors
	CircuitBreakers     OptimizationKind = "circuit_breakers"
	RetryWithBackoff    OptimizationKind = "retry_with_backoff"
	GracefulDegradation OptimizationKind = "graceful_degradation"

	// Satisfaction
	PrecomputedReplies OptimizationKind = "precomputed_replies"
	ContextRelevance   OptimizationKind = "context_relevance"
	ProactiveAssist    OptimizationKind = "proactive_assist"
)

var optimizationTexts = map[OptimizationKind]string{
	AggressiveCaching:     "Enable aggressive caching for frequently accessed data",
	QueryIndexing:         "Optimize vector_store queries with better indexing",
	RequestBatching:       "Implement request batching for parallel operations",
	MemoryPooling:         "Implement memory pooling for object reuse",
	GCOptimization:        "Enable garbage collection optimization",
	LowPriorityCacheCut:   "Reduce cache sizes for low-priority data",
	AdaptiveCacheTTL:      "Adjust cache TTL based on access patterns",
	PredictiveCacheWarmup: "Implement predictive cache warming",
	DistributedCaching:    "Enable distributed caching for shared data",
	CircuitBreakers:       "Implement circuit breakers for failing services",
	RetryWithBackoff:      "Add retry logic with exponential backoff",
	GracefulDegradation:   "Enable graceful degradation for non-critical features",
	PrecomputedReplies:    "Reduce conversation latency with pre-computation",
	ContextRelevance:      "Improve response relevance with better context understanding",
	ProactiveAssist:       "Enable proactive assistance for common tasks",
}

var kindsByMetric = map[MetricName][]OptimizationKind{
	ResponseTime:     {AggressiveCaching, QueryIndexing, RequestBatching},
	MemoryUsage:      {MemoryPooling, GCOptimization, LowPriorityCacheCut},
	CacheHitRate:     {AdaptiveCacheTTL, PredictiveCacheWarmup, DistributedCaching},
	ErrorRate:        {CircuitBreakers, RetryWithBackoff, GracefulDegradation},
	UserSatisfaction: {PrecomputedReplies, ContextRelevance, ProactiveAssist},
}

// Validate проверяет валидность вида оптимизации
func (k OptimizationKind) Validate() error {
	if _, ok := optimizationTexts[k]; !ok {
		return errors.New("invalid optimization kind")
	}
	return nil
}

// String возвращает идентификатор вида оптимизации
func (k OptimizationKind) String() string {
	return string(k)
}

// Text возвращает текст рекомендации для чата
func (k OptimizationKind) Text() string {
	return optimizationTexts[k]
}

// Metric возвращает метрику, нарушение которой порождает эту рекомендацию
func (k OptimizationKind) Metric() MetricName {
	for metric, kinds := range kindsByMetric {
		for _, kind := range kinds {
			if kind == k {
				return metric
			}
		}
	}
	return ""
}

// KindsForMetric возвращает фиксированный набор рекомендаций для метрики
func KindsForMetric(metric MetricName) []OptimizationKind {
	kinds := kindsByMetric[metric]
	result := make([]OptimizationKind, len(kinds))
	copy(result, kinds)
	return result
}

// AllOptimizationKinds возвращает все виды оптимизаций в порядке таблицы порогов
func AllOptimizationKinds() []OptimizationKind {
	result := make([]OptimizationKind, 0, len(optimizationTexts))
	for _, metric := range AllMetricNames() {
		result = append(result, kindsByMetric[metric]...)
	}
	return result
}

// ParseOptimizationKind находит вид оптимизации по идентификатору или тексту рекомендации
func ParseOptimizationKind(raw string) (OptimizationKind, error) {
	normalized := strings.TrimSpace(raw)
	if kind := OptimizationKind(normalized); kind.Validate() == nil {
		return kind, nil
	}
	for kind, text := range optimizationTexts {
		if strings.EqualFold(text, normalized) {
			return kind, nil
		}
	}
	return "", errors.New("unknown optimization: " + normalized)
}
