package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/dreschagin/self-configuration/internal/application/port"
)

type settings struct {
	Theme    string `json:"theme"`
	PoolSize int    `json:"pool_size"`
}

func TestMemoryVaultRoundTrip(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()

	if err := v.Store(ctx, "settings", settings{Theme: "dark", PoolSize: 64}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	var got settings
	if err := v.Retrieve(ctx, "settings", &got); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if got.Theme != "dark" || got.PoolSize != 64 {
		t.Errorf("Retrieve() = %+v", got)
	}

	has, _ := v.Has(ctx, "settings")
	if !has {
		t.Error("Has() = false after Store")
	}

	if err := v.Delete(ctx, "settings"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := v.Retrieve(ctx, "settings", &got); !errors.Is(err, port.ErrVaultItemNotFound) {
		t.Errorf("expected ErrVaultItemNotFound, got %v", err)
	}
	if err := v.Delete(ctx, "settings"); err != nil {
		t.Errorf("deleting missing key should not fail: %v", err)
	}
}

func TestMemoryVaultEncodingIsReversibleBase64(t *testing.T) {
	v := NewMemoryVault()
	_ = v.Store(context.Background(), "k", map[string]string{"a": "b"})

	encoded := v.items["k"]
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("stored value is not base64: %v", err)
	}
	if string(raw) != `{"a":"b"}` {
		t.Errorf("decoded value = %s", raw)
	}
}

func TestMemoryVaultStatsAndClear(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()

	_ = v.Store(ctx, "a", "x")
	_ = v.Store(ctx, "b", 42)

	stats, err := v.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	// "x" -> "\"x\"" -> "Ingi"; 42 -> "NDI="
	if stats.ItemCount != 2 || stats.SizeEstimate != 8 {
		t.Errorf("Stats() = %+v", stats)
	}

	if err := v.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	stats, _ = v.Stats(ctx)
	if stats.ItemCount != 0 || stats.SizeEstimate != 0 {
		t.Errorf("Stats() after Clear = %+v", stats)
	}
}

func TestMemoryHitStats(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()

	if rate := v.HitStats().HitRate(); rate != 1 {
		t.Errorf("hit rate without reads = %v, want 1", rate)
	}

	_ = v.Store(ctx, "k", 1)
	var dest int
	_ = v.Retrieve(ctx, "k", &dest)
	_ = v.Retrieve(ctx, "k", &dest)
	_ = v.Retrieve(ctx, "k", &dest)
	_ = v.Retrieve(ctx, "missing", &dest)

	stats := v.HitStats()
	if stats.Hits != 3 || stats.Misses != 1 || stats.HitRate() != 0.75 {
		t.Errorf("HitStats() = %+v rate %v", stats, stats.HitRate())
	}
}

func TestMemoryVaultConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var dest int
			_ = v.Store(ctx, "shared", i)
			_ = v.Retrieve(ctx, "shared", &dest)
			_, _ = v.Stats(ctx)
		}(i)
	}
	wg.Wait()

	if has, _ := v.Has(ctx, "shared"); !has {
		t.Error("shared key missing after concurrent writes")
	}
}
