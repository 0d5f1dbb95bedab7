package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding marks an embedding call that failed upstream
var ErrEmbedding = errors.New("embedding failed")

// Provider maps text to fixed-length vectors. For a fixed provider
// configuration the mapping is pure: the same text always yields the same
// vector, so results are safe to cache. Vectors from different provider
// configurations are not comparable.
type Provider interface {
	// Embed returns the vector for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns vectors aligned positionally with texts. Failure
	// is all-or-nothing for the call; callers may retry texts individually.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed vector length this provider produces
	Dimension() int
}

// Supported embedding models and their dimensions
const (
	ModelTextEmbedding3Small = "openai/text-embedding-3-small"
	ModelTextEmbedding3Large = "openai/text-embedding-3-large"
	ModelTextEmbeddingAda002 = "openai/text-embedding-ada-002"

	DimTextEmbedding3Small = 1536
	DimTextEmbedding3Large = 3072
	DimTextEmbeddingAda002 = 1536

	DefaultModel = ModelTextEmbedding3Small
)

// GetEmbeddingDimension returns the dimension for a given model
func GetEmbeddingDimension(model string) int {
	switch model {
	case ModelTextEmbedding3Small:
		return DimTextEmbedding3Small
	case ModelTextEmbedding3Large:
		return DimTextEmbedding3Large
	case ModelTextEmbeddingAda002:
		return DimTextEmbeddingAda002
	default:
		return DimTextEmbedding3Small
	}
}

// EmbeddingRequest represents a request to the embedding API
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingResponse represents the API response
type EmbeddingResponse struct {
	Data  []EmbeddingData `json:"data"`
	Model string          `json:"model"`
	Usage Usage           `json:"usage"`
}

// EmbeddingData represents a single embedding in the response
type EmbeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
