package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/port"
)

type item struct {
	data      []byte
	expiresAt time.Time
}

// Cache - port.Cache в памяти процесса, когда Redis выключен.
// Значения хранятся в JSON, как в Redis, поэтому Get отдает копию.
type Cache struct {
	mu    sync.Mutex
	items map[string]item
	ttl   time.Duration
	now   func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache создает кеш. ttl <= 0 означает бессрочное хранение.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		items: make(map[string]item),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get читает значение в dest или возвращает port.ErrCacheMiss
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	it, ok := c.items[key]
	if ok && c.expired(it) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return port.ErrCacheMiss
	}
	c.hits.Add(1)

	if err := json.Unmarshal(it.data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

// Set сохраняет значение с TTL кеша
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	it := item{data: data}
	if c.ttl > 0 {
		it.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
	return nil
}

// Delete удаляет ключ
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// DeletePattern удаляет ключи по glob-шаблону, как SCAN MATCH в Redis
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if matched, _ := path.Match(pattern, key); matched {
			delete(c.items, key)
		}
	}
	return nil
}

// HitStats возвращает счетчики попаданий и промахов Get
func (c *Cache) HitStats() port.HitStats {
	return port.HitStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Len возвращает число хранимых ключей, включая просроченные
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close ничего не освобождает
func (c *Cache) Close() error {
	return nil
}

func (c *Cache) expired(it item) bool {
	return !it.expiresAt.IsZero() && !c.now().Before(it.expiresAt)
}
