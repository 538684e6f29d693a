package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
)

// CachedEmbedder keeps recent single-text embeddings in an LRU. Repeated
// queries skip the embedding backend entirely.
type CachedEmbedder struct {
	Embedder
	cache *lru.Cache
}

// NewCachedEmbedder wraps inner with an LRU of the given size. A size below
// one disables caching and returns inner unchanged.
func NewCachedEmbedder(inner Embedder, size int) (Embedder, error) {
	if size < 1 {
		return inner, nil
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{Embedder: inner, cache: cache}, nil
}

func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v.([]float32), nil
	}
	vec, err := c.Embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, vec)
	return vec, nil
}
