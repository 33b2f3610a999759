package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache stores computed embeddings keyed by model+text hash.
type Cache interface {
	GetMulti(ctx context.Context, keys []string) (map[string][]float32, error)
	SetMulti(ctx context.Context, vectors map[string][]float32) error
}

// CacheKey derives a cache key from model and text.
func CacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model + ":" + text))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// MemoryCache is a process-local cache. Safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{vectors: make(map[string][]float32)}
}

func (c *MemoryCache) GetMulti(ctx context.Context, keys []string) (map[string][]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	found := make(map[string][]float32)
	for _, key := range keys {
		if v, ok := c.vectors[key]; ok {
			found[key] = v
		}
	}
	return found, nil
}

func (c *MemoryCache) SetMulti(ctx context.Context, vectors map[string][]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, v := range vectors {
		c.vectors[key] = v
	}
	return nil
}
