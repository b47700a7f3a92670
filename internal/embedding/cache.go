package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize is the default number of (modelVersion, textHash)->vector
// entries held in the bounded LRU, per spec's EmbeddingProvider caching
// contract.
const defaultCacheSize = 10000

// CachingEmbedder wraps an Embedder with a bounded LRU cache keyed by
// (model, sha256(text)). Persistent caching is not required — the cache is
// purely an optimization, since embeddings are re-derivable from chunk
// content.
type CachingEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, Vector]
}

// NewCachingEmbedder builds a cache of the given size (defaultCacheSize if
// size <= 0) around inner.
func NewCachingEmbedder(inner Embedder, size int) (*CachingEmbedder, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, Vector](size)
	if err != nil {
		return nil, err
	}
	return &CachingEmbedder{inner: inner, cache: c}, nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}

// Embed returns a cached vector when present, otherwise computes and caches it.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) (*Embedding, error) {
	model := c.inner.Model()
	key := cacheKey(model, text)
	if v, ok := c.cache.Get(key); ok {
		return &Embedding{Text: text, Vector: v, Model: model}, nil
	}
	e, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, e.Vector)
	return e, nil
}

// EmbedBatch splits the batch into cache hits and misses, only calling the
// wrapped embedder for texts not already cached.
func (c *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	model := c.inner.Model()
	results := make([]*Embedding, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		key := cacheKey(model, text)
		if v, ok := c.cache.Get(key); ok {
			results[i] = &Embedding{Text: text, Vector: v, Model: model}
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	embedded, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		if j >= len(embedded) {
			break
		}
		results[idx] = embedded[j]
		c.cache.Add(cacheKey(model, texts[idx]), embedded[j].Vector)
	}
	return results, nil
}

// Dimensions delegates to the wrapped embedder.
func (c *CachingEmbedder) Dimensions() int { return c.inner.Dimensions() }

// Model delegates to the wrapped embedder.
func (c *CachingEmbedder) Model() string { return c.inner.Model() }

// Len reports the current number of cached entries (test/observability hook).
func (c *CachingEmbedder) Len() int { return c.cache.Len() }
