package vault

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dreschagin/self-configuration/internal/application/port"
)

// MemoryVault keeps encoded values in a process-local map
type MemoryVault struct {
	mu     sync.RWMutex
	items  map[string]string
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryVault creates an empty in-memory vault
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{items: make(map[string]string)}
}

// Store encodes value and saves it under key, replacing any previous value
func (v *MemoryVault) Store(ctx context.Context, key string, value interface{}) error {
	encoded, err := encode(value)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.items[key] = encoded
	v.mu.Unlock()
	return nil
}

// Retrieve decodes the value stored under key into dest
func (v *MemoryVault) Retrieve(ctx context.Context, key string, dest interface{}) error {
	v.mu.RLock()
	encoded, ok := v.items[key]
	v.mu.RUnlock()

	if !ok {
		v.misses.Add(1)
		return port.ErrVaultItemNotFound
	}

	v.hits.Add(1)
	return decode(encoded, dest)
}

// Delete removes key
func (v *MemoryVault) Delete(ctx context.Context, key string) error {
	v.mu.Lock()
	delete(v.items, key)
	v.mu.Unlock()
	return nil
}

// Has reports whether key is present
func (v *MemoryVault) Has(ctx context.Context, key string) (bool, error) {
	v.mu.RLock()
	_, ok := v.items[key]
	v.mu.RUnlock()
	return ok, nil
}

// Clear removes every key
func (v *MemoryVault) Clear(ctx context.Context) error {
	v.mu.Lock()
	v.items = make(map[string]string)
	v.mu.Unlock()
	return nil
}

// Stats returns the item count and the total length of encoded values
func (v *MemoryVault) Stats(ctx context.Context) (port.VaultStats, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	stats := port.VaultStats{ItemCount: len(v.items)}
	for _, encoded := range v.items {
		stats.SizeEstimate += len(encoded)
	}
	return stats, nil
}

// HitStats returns Retrieve hit/miss counters
func (v *MemoryVault) HitStats() port.HitStats {
	return port.HitStats{
		Hits:   v.hits.Load(),
		Misses: v.misses.Load(),
	}
}
