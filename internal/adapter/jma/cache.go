package jma

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/quake-alert/internal/observability"
)

// fetcher retrieves a document body by URL.
type fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// cachedFetcher wraps a fetcher with an in-memory LRU keyed by URL. JMA never
// rewrites a published document, so a hit is always current.
type cachedFetcher struct {
	inner   fetcher
	cache   *lruCache
	metrics *observability.Metrics
}

func newCachedFetcher(inner fetcher, maxEntries int, metrics *observability.Metrics) *cachedFetcher {
	return &cachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *cachedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if body, ok := c.cache.get(url); ok {
		c.metrics.DocumentCache.WithLabelValues("hit").Inc()
		return body, nil
	}
	c.metrics.DocumentCache.WithLabelValues("miss").Inc()

	body, err := c.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	c.cache.put(url, body)
	return body, nil
}

// lruCache is a thread-safe LRU of document bodies.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
}

type cacheEntry struct {
	key  string
	body []byte
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).body, true
}

func (c *lruCache) put(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).body = body
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, body: body})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
