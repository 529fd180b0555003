package embedclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hieutran512/ragkit/internal/embed"
)

// DefaultEmbedCacheSize bounds how many per-text embeddings the cached
// provider keeps. At 768 dimensions * 4 bytes * 2048 entries this is a
// few MB of memory.
const DefaultEmbedCacheSize = 2048

// Cached wraps an embed.Provider with a per-text LRU so re-indexing a
// tree where many files share boilerplate (license headers, generated
// preambles) doesn't re-embed identical chunk text. Unlike the query
// caches inside the folder package, this cache has no TTL and survives
// across folders, since an embedding is a pure function of its text.
type Cached struct {
	inner embed.Provider
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with a cache of at most size entries,
// defaulting to DefaultEmbedCacheSize when size is non-positive.
func NewCached(inner embed.Provider, size int) *Cached {
	if size <= 0 {
		size = DefaultEmbedCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &Cached{inner: inner, cache: cache}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed implements embed.Provider. Cached texts are served from memory;
// only the misses are forwarded to the inner provider, in their
// original order, and the results are merged back into place.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if v, ok := c.cache.Get(cacheKey(text)); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
		c.cache.Add(cacheKey(missTexts[j]), vectors[j])
	}
	return out, nil
}
