package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Analysis status values for a contract record
const (
	ContractStatusPending    = "pending"
	ContractStatusProcessing = "processing"
	ContractStatusCompleted  = "completed"
	ContractStatusFailed     = "failed"
)

// Contract represents an uploaded contract document
type Contract struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Title          string
	Filename       string
	Content        string
	ContentHash    string
	ContractType   string
	AnalysisStatus string
	AnalysisData   []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ContractRepository defines the interface for contract storage operations
type ContractRepository interface {
	Create(ctx context.Context, contract *Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SetAnalysis(ctx context.Context, id uuid.UUID, contractType string, analysisData []byte) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostgresContractRepository implements ContractRepository using PostgreSQL
type PostgresContractRepository struct {
	db *sql.DB
}

// NewPostgresContractRepository creates a new PostgresContractRepository
func NewPostgresContractRepository(db *sql.DB) *PostgresContractRepository {
	return &PostgresContractRepository{db: db}
}

// Create inserts a new contract into the database
func (r *PostgresContractRepository) Create(ctx context.Context, contract *Contract) error {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}
	if contract.AnalysisStatus == "" {
		contract.AnalysisStatus = ContractStatusPending
	}

	now := time.Now()
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = now
	}
	if contract.UpdatedAt.IsZero() {
		contract.UpdatedAt = now
	}

	query := `
		INSERT INTO contracts (id, user_id, title, filename, content, content_hash, contract_type, analysis_status, analysis_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		contract.ID,
		contract.UserID,
		contract.Title,
		contract.Filename,
		contract.Content,
		contract.ContentHash,
		contract.ContractType,
		contract.AnalysisStatus,
		contract.AnalysisData,
		contract.CreatedAt,
		contract.UpdatedAt,
	)

	return err
}

// GetByID retrieves a contract by its ID
func (r *PostgresContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	query := `
		SELECT id, user_id, title, filename, content, content_hash, contract_type, analysis_status, analysis_data, created_at, updated_at
		FROM contracts
		WHERE id = $1
	`

	contract := &Contract{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&contract.ID,
		&contract.UserID,
		&contract.Title,
		&contract.Filename,
		&contract.Content,
		&contract.ContentHash,
		&contract.ContractType,
		&contract.AnalysisStatus,
		&contract.AnalysisData,
		&contract.CreatedAt,
		&contract.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return contract, nil
}

// GetByUserID retrieves all contracts owned by a user, newest first
func (r *PostgresContractRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Contract, error) {
	query := `
		SELECT id, user_id, title, filename, content, content_hash, contract_type, analysis_status, analysis_data, created_at, updated_at
		FROM contracts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []*Contract
	for rows.Next() {
		contract := &Contract{}
		err := rows.Scan(
			&contract.ID,
			&contract.UserID,
			&contract.Title,
			&contract.Filename,
			&contract.Content,
			&contract.ContentHash,
			&contract.ContractType,
			&contract.AnalysisStatus,
			&contract.AnalysisData,
			&contract.CreatedAt,
			&contract.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return contracts, nil
}

// UpdateStatus sets the analysis status of a contract
func (r *PostgresContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE contracts
		SET analysis_status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}

// SetAnalysis stores the completed analysis document and detected type
func (r *PostgresContractRepository) SetAnalysis(ctx context.Context, id uuid.UUID, contractType string, analysisData []byte) error {
	query := `
		UPDATE contracts
		SET contract_type = $2, analysis_data = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, contractType, analysisData, time.Now())
	return err
}

// Delete removes a contract from the database
func (r *PostgresContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM contracts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
