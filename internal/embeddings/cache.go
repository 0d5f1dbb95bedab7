package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache defines the interface for embedding cache
type Cache interface {
	// Get retrieves an embedding from cache
	Get(ctx context.Context, key string) ([]float32, bool, error)

	// Set stores an embedding in cache
	Set(ctx context.Context, key string, embedding []float32) error

	// GetMulti retrieves multiple embeddings from cache
	// Returns a map of key -> embedding for found entries
	GetMulti(ctx context.Context, keys []string) (map[string][]float32, error)

	// SetMulti stores multiple embeddings in cache
	SetMulti(ctx context.Context, embeddings map[string][]float32) error
}

// GenerateCacheKey creates a cache key from model and text
func GenerateCacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model + ":" + text))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// CachedProvider wraps a Client with caching. Safe because embeddings are
// a pure function of (model, text).
type CachedProvider struct {
	client *Client
	cache  Cache
}

// NewCachedProvider creates a caching wrapper around an embedding client
func NewCachedProvider(client *Client, cache Cache) *CachedProvider {
	return &CachedProvider{
		client: client,
		cache:  cache,
	}
}

// EmbedBatch generates embeddings with caching
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = GenerateCacheKey(c.client.model, text)
	}

	cached, err := c.cache.GetMulti(ctx, keys)
	if err != nil {
		// Continue without cache rather than failing the call
		cached = make(map[string][]float32)
	}

	var uncachedTexts []string
	var uncachedIndices []int
	for i, key := range keys {
		if _, ok := cached[key]; !ok {
			uncachedTexts = append(uncachedTexts, texts[i])
			uncachedIndices = append(uncachedIndices, i)
		}
	}

	var newEmbeddings [][]float32
	if len(uncachedTexts) > 0 {
		newEmbeddings, err = c.client.EmbedBatch(ctx, uncachedTexts)
		if err != nil {
			return nil, err
		}

		toCache := make(map[string][]float32)
		for i, idx := range uncachedIndices {
			toCache[keys[idx]] = newEmbeddings[i]
		}
		if len(toCache) > 0 {
			_ = c.cache.SetMulti(ctx, toCache) // Ignore cache errors
		}
	}

	// Combine cached and new embeddings
	results := make([][]float32, len(texts))
	newIdx := 0
	for i, key := range keys {
		if emb, ok := cached[key]; ok {
			results[i] = emb
		} else {
			results[i] = newEmbeddings[newIdx]
			newIdx++
		}
	}

	return results, nil
}

// Embed generates an embedding for a single text with caching
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Dimension returns the embedding dimension
func (c *CachedProvider) Dimension() int {
	return c.client.Dimension()
}

// MemoryCache is a process-local embedding cache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]float32
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]float32)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	emb, ok := c.entries[key]
	return emb, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, embedding []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = embedding
	return nil
}

func (c *MemoryCache) GetMulti(ctx context.Context, keys []string) (map[string][]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	found := make(map[string][]float32)
	for _, key := range keys {
		if emb, ok := c.entries[key]; ok {
			found[key] = emb
		}
	}
	return found, nil
}

func (c *MemoryCache) SetMulti(ctx context.Context, embeddings map[string][]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, emb := range embeddings {
		c.entries[key] = emb
	}
	return nil
}

// NoOpCache is a cache that doesn't cache anything (for testing)
type NoOpCache struct{}

func (c *NoOpCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	return nil, false, nil
}

func (c *NoOpCache) Set(ctx context.Context, key string, embedding []float32) error {
	return nil
}

func (c *NoOpCache) GetMulti(ctx context.Context, keys []string) (map[string][]float32, error) {
	return make(map[string][]float32), nil
}

func (c *NoOpCache) SetMulti(ctx context.Context, embeddings map[string][]float32) error {
	return nil
}
