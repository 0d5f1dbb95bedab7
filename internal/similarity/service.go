package similarity

import (
	"context"
	"fmt"

	"github.com/clausewise/contract-analyzer/internal/embeddings"
	"github.com/clausewise/contract-analyzer/pkg/models"
)

// Service answers "find clauses similar to this text" against the
// historical corpus held in the index
type Service struct {
	provider embeddings.Provider
	index    *Index
}

// NewService creates a similarity service over the given provider and index
func NewService(provider embeddings.Provider, index *Index) *Service {
	return &Service{
		provider: provider,
		index:    index,
	}
}

// FindSimilarClauses embeds the clause text and returns the k nearest
// corpus clauses by cosine similarity
func (s *Service) FindSimilarClauses(ctx context.Context, clauseText string, k int) ([]models.SimilarClause, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidQuery, k)
	}

	vector, err := s.provider.Embed(ctx, clauseText)
	if err != nil {
		return nil, fmt.Errorf("embed query clause: %w", err)
	}

	return s.index.Query(vector, k)
}

// IndexClause embeds and indexes a historical clause so later queries can
// retrieve it
func (s *Service) IndexClause(ctx context.Context, record ClauseRecord) error {
	vector, err := s.provider.Embed(ctx, record.ClauseText)
	if err != nil {
		return fmt.Errorf("embed clause %s: %w", record.ID, err)
	}

	return s.index.Upsert(record, vector)
}
