package valueobject

import (
	"math"
	"testing"
)

func TestThresholdIsBreached(t *testing.T) {
	tests := []struct {
		name   string
		metric MetricName
		value  float64
		want   bool
	}{
		{"response time over target", ResponseTime, 250, true},
		{"response time at target", ResponseTime, 200, false},
		{"memory over target", MemoryUsage, 2049, true},
		{"memory at target", MemoryUsage, 2048, false},
		{"cache under target", CacheHitRate, 0.79, true},
		{"cache at target", CacheHitRate, 0.8, false},
		{"errors over target", ErrorRate, 0.02, true},
		{"errors at target", ErrorRate, 0.01, false},
		{"satisfaction under target", UserSatisfaction, 0.85, true},
		{"satisfaction at target", UserSatisfaction, 0.9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threshold, ok := ThresholdFor(tt.metric)
			if !ok {
				t.Fatalf("no threshold for %s", tt.metric)
			}
			if got := threshold.IsBreached(tt.value); got != tt.want {
				t.Errorf("IsBreached(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDefaultThresholdsOrderAndPenalties(t *testing.T) {
	thresholds := DefaultThresholds()
	names := AllMetricNames()
	penalties := []int{10, 10, 10, 15, 5}

	if len(thresholds) != len(names) {
		t.Fatalf("expected %d thresholds, got %d", len(names), len(thresholds))
	}
	for i, threshold := range thresholds {
		if threshold.Metric() != names[i] {
			t.Errorf("threshold %d: metric = %s, want %s", i, threshold.Metric(), names[i])
		}
		if threshold.Penalty() != penalties[i] {
			t.Errorf("threshold %d: penalty = %d, want %d", i, threshold.Penalty(), penalties[i])
		}
	}

	// Изменение копии не влияет на таблицу
	thresholds[0] = Threshold{}
	if DefaultThresholds()[0].Metric() != ResponseTime {
		t.Fatal("default thresholds table was mutated through a copy")
	}
}

func TestNewMetricValueValidation(t *testing.T) {
	tests := []struct {
		name    string
		metric  MetricName
		value   float64
		wantErr bool
	}{
		{"valid response time", ResponseTime, 180, false},
		{"negative", MemoryUsage, -1, true},
		{"nan", ResponseTime, math.NaN(), true},
		{"inf", MemoryUsage, math.Inf(1), true},
		{"ratio above one", CacheHitRate, 1.2, true},
		{"ratio at one", UserSatisfaction, 1, false},
		{"unknown metric", MetricName("cpu"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMetricValue(tt.metric, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMetricValue() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptimizationKinds(t *testing.T) {
	all := AllOptimizationKinds()
	if len(all) != 15 {
		t.Fatalf("expected 15 optimization kinds, got %d", len(all))
	}
	if all[0] != AggressiveCaching || all[len(all)-1] != ProactiveAssist {
		t.Errorf("unexpected kind order: first=%s last=%s", all[0], all[len(all)-1])
	}

	for _, kind := range all {
		if kind.Text() == "" {
			t.Errorf("kind %s has no text", kind)
		}
		if kind.Metric() == "" {
			t.Errorf("kind %s has no metric", kind)
		}
	}

	kind, err := ParseOptimizationKind("implement predictive cache warming")
	if err != nil || kind != PredictiveCacheWarmup {
		t.Errorf("ParseOptimizationKind(text) = %v, %v", kind, err)
	}
	if _, err := ParseOptimizationKind("reboot everything"); err == nil {
		t.Error("expected error for unknown optimization")
	}
}

func TestHealthScoreBands(t *testing.T) {
	tests := []struct {
		score int
		band  HealthBand
	}{
		{100, BandExcellent},
		{90, BandExcellent},
		{89, BandGood},
		{70, BandGood},
		{69, BandPoor},
		{-20, BandPoor},
	}

	for _, tt := range tests {
		if got := NewHealthScore(tt.score).Band(); got != tt.band {
			t.Errorf("NewHealthScore(%d).Band() = %s, want %s", tt.score, got, tt.band)
		}
	}

	if NewHealthScore(-5).Int() != 0 {
		t.Error("health score must be floored at 0")
	}
	if NewHealthScore(150) != MaxHealthScore {
		t.Error("health score must be capped at 100")
	}
}

func TestMetricNameFieldName(t *testing.T) {
	tests := []struct {
		metric MetricName
		want   string
	}{
		{ResponseTime, "response_time_ms"},
		{MemoryUsage, "memory_usage_mb"},
		{CacheHitRate, "cache_hit_rate"},
		{ErrorRate, "error_rate"},
		{UserSatisfaction, "user_satisfaction"},
	}

	for _, tt := range tests {
		t.Run(tt.metric.String(), func(t *testing.T) {
			if got := tt.metric.FieldName(); got != tt.want {
				t.Errorf("FieldName() = %s, want %s", got, tt.want)
			}
		})
	}
}
