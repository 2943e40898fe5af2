package utils

import (
	"fmt"
	"time"

	"textilserver/internal/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem struct {
	data      any
	expiresAt time.Time
}

// Cache is a size bounded in-process cache with per-entry TTL.
type Cache struct {
	lruCache *lru.Cache[string, cacheItem]
	now      func() time.Time
}

func NewCache(size int) (*Cache, error) {
	l, err := lru.New[string, cacheItem](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Cache{lruCache: l, now: time.Now}, nil
}

// Set stores data under key for ttl.
func (c *Cache) Set(key string, data any, ttl time.Duration) {
	c.lruCache.Add(key, cacheItem{
		data:      data,
		expiresAt: c.now().Add(ttl),
	})
}

// Get returns the cached value, or nil when missing or expired.
func (c *Cache) Get(key string) any {
	val, ok := c.lruCache.Get(key)
	if !ok {
		metrics.CacheMisses.Inc()
		return nil
	}

	if c.now().After(val.expiresAt) {
		c.lruCache.Remove(key)
		metrics.CacheMisses.Inc()
		return nil
	}

	metrics.CacheHits.Inc()
	return val.data
}

func (c *Cache) Delete(key string) {
	c.lruCache.Remove(key)
}

// Cached returns the value under key, computing and storing it on a miss.
func Cached[T any](c *Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if c != nil {
		if v, ok := c.Get(key).(T); ok {
			return v, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if c != nil {
		c.Set(key, v, ttl)
	}
	return v, nil
}
