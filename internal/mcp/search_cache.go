package mcp

import (
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ferg-cod3s/docsyncer/internal/vectorstore"
)

const (
	defaultSearchCacheSize = 500
	defaultSearchCacheTTL  = 5 * time.Minute
)

// cachedSearchResult is what SearchCache stores per query/filter key.
type cachedSearchResult struct {
	Results   []vectorstore.SearchResult
	QueryTime float64
	storedAt  time.Time
}

// SearchCache is a bounded, TTL-expiring cache of context.search results,
// keyed by (query, filters). Mirrors the LRU-wrapping pattern used by
// embedding.CachingEmbedder, since repeated searches for the same query
// and filter set are cheap to skip and results go stale quickly as the
// index changes underneath them.
type SearchCache struct {
	cache *lru.Cache[string, cachedSearchResult]
	ttl   time.Duration
}

// NewSearchCache builds a cache holding up to size entries (defaultSearchCacheSize
// if size <= 0), each valid for ttlSeconds seconds (defaultSearchCacheTTL if
// ttlSeconds <= 0).
func NewSearchCache(ttlSeconds, size int) *SearchCache {
	if size <= 0 {
		size = defaultSearchCacheSize
	}
	c, err := lru.New[string, cachedSearchResult](size)
	if err != nil {
		// size is always > 0 here, so this is unreachable in practice.
		c, _ = lru.New[string, cachedSearchResult](defaultSearchCacheSize)
	}
	ttl := defaultSearchCacheTTL
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return &SearchCache{cache: c, ttl: ttl}
}

// Get returns the cached result for query/filters if present and not expired.
func (c *SearchCache) Get(query string, filters map[string]interface{}) (cachedSearchResult, bool) {
	key := searchCacheKey(query, filters)
	entry, ok := c.cache.Get(key)
	if !ok {
		return cachedSearchResult{}, false
	}
	if time.Since(entry.storedAt) > c.ttl {
		c.cache.Remove(key)
		return cachedSearchResult{}, false
	}
	return entry, true
}

// Set stores results for query/filters, stamped with the current time.
func (c *SearchCache) Set(query string, filters map[string]interface{}, results []vectorstore.SearchResult, queryTime float64) {
	c.cache.Add(searchCacheKey(query, filters), cachedSearchResult{
		Results:   results,
		QueryTime: queryTime,
		storedAt:  time.Now(),
	})
}

func searchCacheKey(query string, filters map[string]interface{}) string {
	encoded, err := json.Marshal(filters)
	if err != nil {
		return query
	}
	return query + "|" + string(encoded)
}
