package embeddings

import (
	"context"
	"log"
	"strings"
)

// Provider is the embedding collaborator contract: blank or failed input
// yields an empty vector, never an error, signaling "no embedding
// available" to callers that must keep going.
type Provider interface {
	Embed(ctx context.Context, text string) []float32
	EmbedBatch(ctx context.Context, texts []string) map[string][]float32
	ModelName() string
}

// CachedProvider implements Provider over the HTTP client with a
// read-through cache.
type CachedProvider struct {
	client *Client
	cache  Cache
}

// NewCachedProvider wraps a client with a cache. A nil cache gets an
// in-memory one.
func NewCachedProvider(client *Client, cache Cache) *CachedProvider {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &CachedProvider{client: client, cache: cache}
}

// ModelName returns the underlying model identifier.
func (p *CachedProvider) ModelName() string {
	return p.client.Model()
}

// Embed returns the embedding for one text, or an empty vector when the
// text is blank or the provider call fails.
func (p *CachedProvider) Embed(ctx context.Context, text string) []float32 {
	vectors := p.EmbedBatch(ctx, []string{text})
	return vectors[text]
}

// EmbedBatch returns a vector per input text. Blank texts and failed
// lookups map to empty vectors; cache misses are fetched in one client
// call and written back.
func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) map[string][]float32 {
	out := make(map[string][]float32, len(texts))

	var lookup []string
	var keys []string
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[text] = []float32{}
			continue
		}
		lookup = append(lookup, text)
		keys = append(keys, CacheKey(p.client.Model(), text))
	}

	cached, err := p.cache.GetMulti(ctx, keys)
	if err != nil {
		log.Printf("embeddings: cache read failed, fetching all: %v", err)
		cached = map[string][]float32{}
	}

	var misses []string
	var missKeys []string
	for i, text := range lookup {
		if v, ok := cached[keys[i]]; ok {
			out[text] = v
			continue
		}
		misses = append(misses, text)
		missKeys = append(missKeys, keys[i])
	}

	if len(misses) > 0 {
		vectors, err := p.client.EmbedTexts(ctx, misses)
		if err != nil {
			log.Printf("embeddings: provider call failed for %d texts: %v", len(misses), err)
			for _, text := range misses {
				out[text] = []float32{}
			}
			return out
		}

		toCache := make(map[string][]float32, len(misses))
		for i, text := range misses {
			v := vectors[i]
			if v == nil {
				v = []float32{}
			}
			out[text] = v
			if len(v) > 0 {
				toCache[missKeys[i]] = v
			}
		}
		if len(toCache) > 0 {
			if err := p.cache.SetMulti(ctx, toCache); err != nil {
				log.Printf("embeddings: cache write failed: %v", err)
			}
		}
	}

	return out
}
