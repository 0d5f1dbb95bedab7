package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clausewise/contract-analyzer/internal/auth"
	"github.com/clausewise/contract-analyzer/internal/storage"
	"github.com/clausewise/contract-analyzer/pkg/models"
)

// ContractResponse is the API representation of a stored contract
type ContractResponse struct {
	ID             string                   `json:"id"`
	Title          string                   `json:"title"`
	Filename       string                   `json:"filename,omitempty"`
	ContractType   string                   `json:"contract_type,omitempty"`
	AnalysisStatus string                   `json:"analysis_status"`
	Analysis       *models.ContractAnalysis `json:"analysis,omitempty"`
	CreatedAt      string                   `json:"created_at"`
	UpdatedAt      string                   `json:"updated_at"`
}

func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func contractResponse(c *storage.Contract, includeAnalysis bool) ContractResponse {
	resp := ContractResponse{
		ID:             c.ID.String(),
		Title:          c.Title,
		Filename:       c.Filename,
		ContractType:   c.ContractType,
		AnalysisStatus: c.AnalysisStatus,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
	}

	if includeAnalysis && len(c.AnalysisData) > 0 {
		var analysis models.ContractAnalysis
		if err := json.Unmarshal(c.AnalysisData, &analysis); err == nil {
			resp.Analysis = &analysis
		}
	}

	return resp
}

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	contracts, err := s.contractRepo.GetByUserID(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch contracts")
		return
	}

	responses := make([]ContractResponse, len(contracts))
	for i, c := range contracts {
		responses[i] = contractResponse(c, false)
	}

	respondJSON(w, http.StatusOK, responses)
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	contractID, err := uuid.Parse(chi.URLParam(r, "contractID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid contract ID")
		return
	}

	contract, err := s.contractRepo.GetByID(r.Context(), contractID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch contract")
		return
	}
	if contract == nil || contract.UserID != userID {
		respondError(w, http.StatusNotFound, "contract not found")
		return
	}

	respondJSON(w, http.StatusOK, contractResponse(contract, true))
}

func (s *Server) handleDeleteContract(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	contractID, err := uuid.Parse(chi.URLParam(r, "contractID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid contract ID")
		return
	}

	contract, err := s.contractRepo.GetByID(r.Context(), contractID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch contract")
		return
	}
	if contract == nil || contract.UserID != userID {
		respondError(w, http.StatusNotFound, "contract not found")
		return
	}

	if err := s.clauseRepo.DeleteByContractID(r.Context(), contractID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete contract clauses")
		return
	}
	if err := s.contractRepo.Delete(r.Context(), contractID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete contract")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
