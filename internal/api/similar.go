package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/clausewise/contract-analyzer/internal/embeddings"
	"github.com/clausewise/contract-analyzer/internal/similarity"
	"github.com/clausewise/contract-analyzer/internal/storage"
	"github.com/clausewise/contract-analyzer/pkg/models"
)

const defaultSimilarLimit = 5

type similarClausesRequest struct {
	ClauseText string `json:"clause_text"`
	Limit      int    `json:"limit,omitempty"`
}

type similarClausesResponse struct {
	Results []models.SimilarClause `json:"results"`
}

// handleFindSimilarClauses returns the corpus clauses nearest to the given
// clause text
func (s *Server) handleFindSimilarClauses(w http.ResponseWriter, r *http.Request) {
	if s.similarity == nil {
		respondError(w, http.StatusServiceUnavailable, "similarity search is not configured")
		return
	}

	var req similarClausesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ClauseText) == "" {
		respondError(w, http.StatusBadRequest, "clause_text is required")
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultSimilarLimit
	}

	var results []models.SimilarClause
	var err error
	if s.index.Len() > 0 {
		results, err = s.similarity.FindSimilarClauses(r.Context(), req.ClauseText, req.Limit)
	} else {
		// Cold index (nothing warmed or indexed yet): query the durable
		// corpus through pgvector instead
		results, err = s.findSimilarFromCorpus(r.Context(), req.ClauseText, req.Limit)
	}
	if err != nil {
		switch {
		case errors.Is(err, similarity.ErrInvalidQuery):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, embeddings.ErrEmbedding):
			respondError(w, http.StatusBadGateway, "embedding provider unavailable")
		default:
			respondError(w, http.StatusInternalServerError, "similarity search failed")
		}
		return
	}
	if results == nil {
		results = []models.SimilarClause{}
	}

	respondJSON(w, http.StatusOK, similarClausesResponse{Results: results})
}

// findSimilarFromCorpus answers a similarity query straight from the
// clause_corpus table using the pgvector cosine-distance operator
func (s *Server) findSimilarFromCorpus(ctx context.Context, clauseText string, k int) ([]models.SimilarClause, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", similarity.ErrInvalidQuery, k)
	}

	vector, err := s.provider.Embed(ctx, clauseText)
	if err != nil {
		return nil, err
	}

	rows, err := s.corpusRepo.FindSimilar(ctx, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, err
	}

	results := make([]models.SimilarClause, len(rows))
	for i, row := range rows {
		results[i] = models.SimilarClause{
			ID:          row.Clause.ID.String(),
			ClauseText:  row.Clause.ClauseText,
			ClauseType:  modelClauseType(row.Clause.ClauseType),
			IsFavorable: row.Clause.IsFavorable,
			Explanation: row.Clause.Explanation,
			Similarity:  row.Similarity,
		}
	}
	return results, nil
}

type indexCorpusClauseRequest struct {
	ClauseText  string `json:"clause_text"`
	ClauseType  string `json:"clause_type"`
	IsFavorable bool   `json:"is_favorable"`
	Explanation string `json:"explanation"`
}

// handleIndexCorpusClause adds a reviewed clause to the historical corpus,
// both the durable store and the in-memory index
func (s *Server) handleIndexCorpusClause(w http.ResponseWriter, r *http.Request) {
	if s.similarity == nil {
		respondError(w, http.StatusServiceUnavailable, "similarity search is not configured")
		return
	}

	var req indexCorpusClauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ClauseText) == "" {
		respondError(w, http.StatusBadRequest, "clause_text is required")
		return
	}
	clauseType := models.ClauseType(req.ClauseType)
	if !clauseType.Valid() {
		respondError(w, http.StatusBadRequest, "unknown clause_type")
		return
	}

	vector, err := s.provider.Embed(r.Context(), req.ClauseText)
	if err != nil {
		respondError(w, http.StatusBadGateway, "embedding provider unavailable")
		return
	}

	clause := &storage.CorpusClause{
		ID:          uuid.New(),
		ClauseText:  req.ClauseText,
		ClauseType:  req.ClauseType,
		IsFavorable: req.IsFavorable,
		Explanation: req.Explanation,
		Embedding:   pgvector.NewVector(vector),
	}
	if err := s.corpusRepo.Upsert(r.Context(), clause); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store corpus clause")
		return
	}

	// The embedding is cached, so re-indexing through the service does not
	// hit the provider again
	record := similarity.ClauseRecord{
		ID:          clause.ID.String(),
		ClauseText:  clause.ClauseText,
		ClauseType:  clauseType,
		IsFavorable: clause.IsFavorable,
		Explanation: clause.Explanation,
	}
	if err := s.similarity.IndexClause(r.Context(), record); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to index corpus clause")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": clause.ID.String()})
}

func modelClauseType(t string) models.ClauseType {
	ct := models.ClauseType(t)
	if !ct.Valid() {
		return models.ClauseOther
	}
	return ct
}
