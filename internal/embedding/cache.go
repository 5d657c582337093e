package embedding

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedTextBackend memoizes prompt embeddings in an LRU cache keyed by prompt text.
// Misses from one call are sent to the wrapped backend as a single batch.
type CachedTextBackend struct {
	inner  TextBackend
	cache  *lru.Cache[string, []float32]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedTextBackend wraps inner with a cache holding up to capacity prompts.
func NewCachedTextBackend(inner TextBackend, capacity int) (*CachedTextBackend, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	cache, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedTextBackend{inner: inner, cache: cache}, nil
}

// EmbedBatch returns cached embeddings where available and embeds the rest.
func (c *CachedTextBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			out[i] = append([]float32(nil), v...)
			c.hits.Add(1)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	c.misses.Add(int64(len(missTexts)))
	if len(missTexts) == 0 {
		return out, nil
	}

	embedded, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(missTexts) {
		return nil, fmt.Errorf("text backend returned %d embeddings for %d prompts", len(embedded), len(missTexts))
	}
	for j, vec := range embedded {
		c.cache.Add(missTexts[j], append([]float32(nil), vec...))
		out[missIdx[j]] = vec
	}
	return out, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *CachedTextBackend) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached prompts.
func (c *CachedTextBackend) Len() int {
	return c.cache.Len()
}

// Dimensions returns the wrapped backend's dimension.
func (c *CachedTextBackend) Dimensions() int {
	return c.inner.Dimensions()
}

// Close purges the cache and closes the wrapped backend.
func (c *CachedTextBackend) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
