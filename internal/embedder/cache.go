package embedder

import (
	"context"
	"sync"

	"github.com/docchat/docchat-go/internal/rag"
)

// defaultCacheEntries bounds the exact-text cache when no explicit size is
// configured. Chat queries repeat often enough that a small cache pays for
// itself without meaningful memory cost.
const defaultCacheEntries = 1024

// CachingEmbedder wraps a rag.Embedder with an exact-text vector cache.
// Embeddings are deterministic for a fixed model and input, so serving a
// repeat query from memory is always correct. The cache provides no
// cross-request consistency guarantees beyond that: a concurrent miss may
// trigger a redundant provider call, which is idempotent and harmless.
// Safe for concurrent use.
type CachingEmbedder struct {
	// inner is the embedder consulted on cache miss.
	inner rag.Embedder

	// mu guards vectors.
	mu sync.Mutex
	// vectors maps input text to its embedding.
	vectors map[string][]float32
	// maxEntries bounds the map; when full the cache is reset wholesale.
	// A reset costs only redundant provider calls, never correctness.
	maxEntries int
}

// NewCachingEmbedder wraps inner with an exact-text cache holding at most
// maxEntries vectors. maxEntries <= 0 selects the default bound.
func NewCachingEmbedder(inner rag.Embedder, maxEntries int) *CachingEmbedder {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	return &CachingEmbedder{
		inner:      inner,
		vectors:    make(map[string][]float32),
		maxEntries: maxEntries,
	}
}

// Embed returns cached vectors for known texts and delegates the remainder
// to the inner embedder in a single batched call. The returned slice is
// parallel to the input slice.
func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int

	c.mu.Lock()
	for i, text := range texts {
		if v, ok := c.vectors[text]; ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(c.vectors)+len(fetched) > c.maxEntries {
		c.vectors = make(map[string][]float32)
	}
	for i, v := range fetched {
		out[missingIdx[i]] = v
		c.vectors[missing[i]] = v
	}
	c.mu.Unlock()

	return out, nil
}

// Len reports the current number of cached vectors.
func (c *CachingEmbedder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.vectors)
}
