package biz

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kart-io/nlquery/internal/model"
)

const (
	// DefaultCacheSize is the maximum number of cached responses before the
	// least recently used entry is evicted.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is how long a cached response stays valid.
	DefaultCacheTTL = 300 * time.Second
)

// CacheKey derives the cache key for a query against a schema snapshot. The
// query text is normalized so trivial whitespace and case variations share an
// entry; the schema hash scopes entries to the schema they were computed
// against.
func CacheKey(query, schemaHash string) string {
	return strings.ToLower(strings.TrimSpace(query)) + "::schema::" + schemaHash
}

// ResponseCache is a TTL-bounded LRU of fully computed query responses.
type ResponseCache struct {
	lru *expirable.LRU[string, *model.Response]
}

// NewResponseCache creates a cache holding at most size entries, each valid
// for ttl. Non-positive arguments fall back to the defaults.
func NewResponseCache(size int, ttl time.Duration) *ResponseCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResponseCache{
		lru: expirable.NewLRU[string, *model.Response](size, nil, ttl),
	}
}

// Get returns the cached response for key, marked as a cache hit. The stored
// entry is never handed out directly, so callers cannot mutate it.
func (c *ResponseCache) Get(key string) (*model.Response, bool) {
	stored, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	resp := *stored
	resp.CacheHit = true
	return &resp, true
}

// Put stores a response under key.
func (c *ResponseCache) Put(key string, resp *model.Response) {
	c.lru.Add(key, resp)
}

// Len returns the number of live entries.
func (c *ResponseCache) Len() int {
	return c.lru.Len()
}
