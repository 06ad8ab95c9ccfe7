package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pageCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_page_cache_hits_total",
			Help: "Total number of home feed page cache hits",
		},
		[]string{"backend"},
	)

	pageCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_page_cache_misses_total",
			Help: "Total number of home feed page cache misses",
		},
		[]string{"backend"},
	)
)

// PageCache - кэш отрендеренной страницы общей ленты.
// Ключ - только параметры выборки (номер страницы), зритель в ключ не входит.
// Записи в БД кэш не инвалидируют: устаревание только по TTL или явному Clear.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
	Clear(ctx context.Context) error
}

// IndexPageKey строит ключ кэша главной страницы по номеру страницы
func IndexPageKey(number int) string {
	return fmt.Sprintf("index_page:p=%d", number)
}

type memoryEntry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryPageCache - кэш в памяти процесса; используется,
// когда Redis не сконфигурирован, и в тестах (через подменяемые часы)
type MemoryPageCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryPageCache(ttl time.Duration) *MemoryPageCache {
	return &MemoryPageCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock подменяет источник времени (для тестов окна устаревания)
func (c *MemoryPageCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *MemoryPageCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	if !ok || now.After(entry.expiresAt) {
		pageCacheMisses.WithLabelValues("memory").Inc()
		return nil, false
	}
	pageCacheHits.WithLabelValues("memory").Inc()
	return entry.body, true
}

func (c *MemoryPageCache) Set(_ context.Context, key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{body: body, expiresAt: c.now().Add(c.ttl)}
}

func (c *MemoryPageCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}

// RedisPageCache - кэш страницы в Redis; TTL вешается на каждый ключ
type RedisPageCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisPageCache(client *redis.Client, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{
		client: client,
		ttl:    ttl,
		prefix: "page_cache:",
	}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		pageCacheMisses.WithLabelValues("redis").Inc()
		return nil, false
	}
	pageCacheHits.WithLabelValues("redis").Inc()
	return body, true
}

func (c *RedisPageCache) Set(ctx context.Context, key string, body []byte) {
	c.client.Set(ctx, c.prefix+key, body, c.ttl)
}

// Clear удаляет все закэшированные страницы (операторское действие)
func (c *RedisPageCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
