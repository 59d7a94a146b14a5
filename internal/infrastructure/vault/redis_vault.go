package vault

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/port"
	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

// RedisVault keeps encoded values in Redis under a key prefix
type RedisVault struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisVault creates a vault over an existing client.
// A zero ttl stores keys without expiration.
func NewRedisVault(client *redis.Client, prefix string, ttl time.Duration) *RedisVault {
	return &RedisVault{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (v *RedisVault) key(key string) string {
	return v.prefix + key
}

// Store encodes value and saves it under key
func (v *RedisVault) Store(ctx context.Context, key string, value interface{}) error {
	encoded, err := encode(value)
	if err != nil {
		return err
	}

	if err := v.client.Set(ctx, v.key(key), encoded, v.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store vault item: %w", err)
	}
	return nil
}

// Retrieve decodes the value stored under key into dest
func (v *RedisVault) Retrieve(ctx context.Context, key string, dest interface{}) error {
	encoded, err := v.client.Get(ctx, v.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		v.misses.Add(1)
		return port.ErrVaultItemNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to retrieve vault item: %w", err)
	}

	v.hits.Add(1)
	return decode(encoded, dest)
}

// Delete removes key
func (v *RedisVault) Delete(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, v.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete vault item: %w", err)
	}
	return nil
}

// Has reports whether key is present
func (v *RedisVault) Has(ctx context.Context, key string) (bool, error) {
	n, err := v.client.Exists(ctx, v.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check vault item: %w", err)
	}
	return n > 0, nil
}

// Clear removes every key under the vault prefix
func (v *RedisVault) Clear(ctx context.Context) error {
	keys, err := v.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := v.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear vault: %w", err)
	}
	return nil
}

// Stats returns the item count and the total length of encoded values
func (v *RedisVault) Stats(ctx context.Context) (port.VaultStats, error) {
	keys, err := v.keys(ctx)
	if err != nil {
		return port.VaultStats{}, err
	}

	stats := port.VaultStats{ItemCount: len(keys)}
	if len(keys) == 0 {
		return stats, nil
	}

	pipe := v.client.Pipeline()
	lengths := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		lengths[i] = pipe.StrLen(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return port.VaultStats{}, fmt.Errorf("failed to measure vault items: %w", err)
	}

	for _, cmd := range lengths {
		stats.SizeEstimate += int(cmd.Val())
	}
	return stats, nil
}

// HitStats returns Retrieve hit/miss counters of this process
func (v *RedisVault) HitStats() port.HitStats {
	return port.HitStats{
		Hits:   v.hits.Load(),
		Misses: v.misses.Load(),
	}
}

func (v *RedisVault) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := v.client.Scan(ctx, 0, v.prefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan vault keys: %w", err)
	}
	return keys, nil
}
