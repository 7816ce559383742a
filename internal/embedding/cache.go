package embedding

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/dgraph-io/ristretto"
)

// CachedEmbedder wraps an Embedder with a bounded in-memory cache keyed by
// content hash. Embedding the same text twice hits the provider once.
type CachedEmbedder struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCachedEmbedder creates a cache holding up to capacity vectors.
func NewCachedEmbedder(inner Embedder, capacity int64) (*CachedEmbedder, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	key := contentKey(text)
	if v, ok := c.cache.Get(key); ok {
		if vec, ok := v.(Vector); ok {
			return vec, nil
		}
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vec, 1)
	return vec, nil
}

func (c *CachedEmbedder) Dims() int { return c.inner.Dims() }

// Wait flushes pending cache writes. Ristretto admits entries
// asynchronously; tests call this to make Set visible.
func (c *CachedEmbedder) Wait() { c.cache.Wait() }

func contentKey(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}
