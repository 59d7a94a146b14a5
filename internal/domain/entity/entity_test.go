package entity

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

func TestNewMetricsSnapshot(t *testing.T) {
	complete := SnapshotValues{
		ResponseTimeMs:   Float(180),
		MemoryUsageMb:    Float(1800),
		CacheHitRate:     Float(0.85),
		ErrorRate:        Float(0.005),
		UserSatisfaction: Float(0.92),
	}

	snapshot, err := NewMetricsSnapshot(complete, time.Now())
	if err != nil {
		t.Fatalf("NewMetricsSnapshot() error = %v", err)
	}
	if snapshot.ResponseTimeMs() != 180 || snapshot.UserSatisfaction() != 0.92 {
		t.Errorf("unexpected values: %+v", snapshot.Raw())
	}
	if len(snapshot.Values()) != 5 {
		t.Errorf("expected 5 values, got %d", len(snapshot.Values()))
	}

	tests := []struct {
		name    string
		mutate  func(v *SnapshotValues)
		wantErr string
	}{
		{"missing cache hit rate", func(v *SnapshotValues) { v.CacheHitRate = nil }, "missing field cache_hit_rate"},
		{"missing satisfaction", func(v *SnapshotValues) { v.UserSatisfaction = nil }, "missing field user_satisfaction"},
		{"negative memory", func(v *SnapshotValues) { v.MemoryUsageMb = Float(-10) }, "cannot be negative"},
		{"error rate above one", func(v *SnapshotValues) { v.ErrorRate = Float(1.5) }, "within [0, 1]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values := complete
			tc.mutate(&values)

			_, err := NewMetricsSnapshot(values, time.Now())
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidSnapshot) {
				t.Errorf("expected ErrInvalidSnapshot, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}

	if _, err := NewMetricsSnapshot(complete, time.Time{}); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("expected ErrInvalidSnapshot for zero time, got %v", err)
	}
}

func TestOptimizationProfileWithAppliedIsImmutable(t *testing.T) {
	snapshot := MustSnapshot(250, 1800, 0.85, 0.005, 0.92)
	kinds := valueobject.KindsForMetric(valueobject.ResponseTime)

	profile, err := NewOptimizationProfile(snapshot, kinds, time.Now())
	if err != nil {
		t.Fatalf("NewOptimizationProfile() error = %v", err)
	}

	updated := profile.WithApplied(valueobject.AggressiveCaching)
	if len(profile.AppliedOptimizations()) != 0 {
		t.Fatalf("original profile was mutated: %v", profile.AppliedOptimizations())
	}
	if got := updated.AppliedOptimizations(); len(got) != 1 || got[0] != "Enable aggressive caching for frequently accessed data" {
		t.Fatalf("unexpected applied list: %v", got)
	}
	if updated.ID() != profile.ID() {
		t.Error("WithApplied must keep profile id")
	}

	again := updated.WithApplied(valueobject.QueryIndexing)
	if len(again.AppliedKinds()) != 2 || len(updated.AppliedKinds()) != 1 {
		t.Error("applied list must be append-only per copy")
	}

	// Изменение возвращенного слайса не затрагивает профиль
	recs := profile.RecommendationKinds()
	recs[0] = valueobject.ProactiveAssist
	if profile.RecommendationKinds()[0] != valueobject.AggressiveCaching {
		t.Error("recommendations leaked through returned slice")
	}
}

func TestNewOptimizationProfileValidation(t *testing.T) {
	if _, err := NewOptimizationProfile(nil, nil, time.Now()); err == nil {
		t.Error("expected error for nil snapshot")
	}

	snapshot := MustSnapshot(150, 1800, 0.85, 0.005, 0.92)
	if _, err := NewOptimizationProfile(snapshot, []valueobject.OptimizationKind{"bogus"}, time.Now()); err == nil {
		t.Error("expected error for unknown kind")
	}
}
