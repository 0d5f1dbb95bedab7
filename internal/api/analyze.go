package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/clausewise/contract-analyzer/internal/aggregator"
	"github.com/clausewise/contract-analyzer/internal/pipeline"
	"github.com/clausewise/contract-analyzer/internal/segmenter"
	"github.com/clausewise/contract-analyzer/internal/storage"
	"github.com/clausewise/contract-analyzer/pkg/models"
)

type analyzeRequest struct {
	Title        string `json:"title"`
	Filename     string `json:"filename"`
	Content      string `json:"content"`
	ContractType string `json:"contract_type,omitempty"`
}

type analyzeResponse struct {
	ContractID     uuid.UUID                      `json:"contract_id"`
	Analysis       *models.ContractAnalysis       `json:"analysis"`
	ClauseFailures []pipeline.ClauseFailure       `json:"clause_failures,omitempty"`
	Precedents     map[int][]models.SimilarClause `json:"precedents,omitempty"`
}

// handleAnalyze runs the full analysis pipeline for an uploaded contract
// and persists the outcome
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "analysis is not configured")
		return
	}

	userID, ok := getUserIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Title == "" {
		req.Title = req.Filename
	}
	if req.Title == "" {
		req.Title = "Untitled contract"
	}

	hash := sha256.Sum256([]byte(req.Content))
	contract := &storage.Contract{
		UserID:      userID,
		Title:       req.Title,
		Filename:    req.Filename,
		Content:     req.Content,
		ContentHash: hex.EncodeToString(hash[:]),
	}
	if err := s.contractRepo.Create(r.Context(), contract); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create contract")
		return
	}

	result, err := s.pipeline.Analyze(r.Context(), pipeline.Request{
		ContractID: contract.ID,
		Text:       req.Content,
		TypeHint:   models.ContractType(req.ContractType),
		Filename:   req.Filename,
	})
	if err != nil {
		respondError(w, analyzeErrorStatus(err), err.Error())
		return
	}

	if err := s.persistAnalysis(r, contract.ID, result); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store analysis")
		return
	}

	respondJSON(w, http.StatusOK, analyzeResponse{
		ContractID:     result.ContractID,
		Analysis:       result.Analysis,
		ClauseFailures: result.ClauseFailures,
		Precedents:     result.Precedents,
	})
}

// persistAnalysis stores the flagged clauses and the analysis document for
// a completed run
func (s *Server) persistAnalysis(r *http.Request, contractID uuid.UUID, result *pipeline.Result) error {
	clauses := make([]*storage.Clause, len(result.Analysis.FlaggedClauses))
	for i, fc := range result.Analysis.FlaggedClauses {
		clauses[i] = &storage.Clause{
			ContractID:  contractID,
			ClauseText:  fc.ClauseText,
			ClauseType:  string(fc.ClauseType),
			RiskLevel:   string(fc.RiskLevel),
			RiskScore:   fc.RiskScore,
			Explanation: fc.Explanation,
			Suggestion:  fc.Suggestion,
			Position:    fc.Position,
		}
	}
	if err := s.clauseRepo.CreateBatch(r.Context(), clauses); err != nil {
		return err
	}

	data, err := json.Marshal(result.Analysis)
	if err != nil {
		return err
	}
	return s.contractRepo.SetAnalysis(r.Context(), contractID, string(result.Analysis.ContractType), data)
}

func analyzeErrorStatus(err error) int {
	switch {
	case errors.Is(err, segmenter.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, aggregator.ErrEmptyAnalysis):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, pipeline.ErrCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
