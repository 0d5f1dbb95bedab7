package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/clausewise/contract-analyzer/internal/pipeline"
)

// StatusRecorder maps pipeline states onto contract analysis statuses.
// It implements pipeline.StatusReporter.
type StatusRecorder struct {
	contracts ContractRepository
}

// NewStatusRecorder creates a recorder writing into the given repository
func NewStatusRecorder(contracts ContractRepository) *StatusRecorder {
	return &StatusRecorder{contracts: contracts}
}

// ReportState records the contract status for a pipeline state. Reporting
// is best-effort: a failed status write never interrupts the pipeline.
func (r *StatusRecorder) ReportState(ctx context.Context, contractID uuid.UUID, state pipeline.State) {
	var status string
	switch state {
	case pipeline.StateCompleted:
		status = ContractStatusCompleted
	case pipeline.StateFailed:
		status = ContractStatusFailed
	default:
		status = ContractStatusProcessing
	}

	_ = r.contracts.UpdateStatus(ctx, contractID, status)
}
