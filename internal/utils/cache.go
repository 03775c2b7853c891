package utils

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// CacheItem wraps cached data with its expiry.
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// PageCache is a small process-local LRU for rendered page data.
// Poll results never go through it.
type PageCache struct {
	lruCache *lru.Cache[string, CacheItem]
}

var (
	cacheInstance *PageCache
	cacheOnce     sync.Once
)

// GetCache returns the shared cache, creating it on first use.
func GetCache() *PageCache {
	cacheOnce.Do(func() {
		c, err := NewPageCache(500)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create LRU cache")
		}
		cacheInstance = c
	})
	return cacheInstance
}

func NewPageCache(size int) (*PageCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &PageCache{lruCache: l}, nil
}

// Set stores data for ttl.
func (c *PageCache) Set(key string, data interface{}, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get returns nil when the key is missing or expired.
func (c *PageCache) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

func (c *PageCache) Delete(key string) {
	c.lruCache.Remove(key)
}

// DeletePrefix drops every key starting with prefix.
func (c *PageCache) DeletePrefix(prefix string) {
	for _, key := range c.lruCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lruCache.Remove(key)
		}
	}
}
