package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Clause represents a flagged clause persisted for a contract
type Clause struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	ClauseText  string
	ClauseType  string
	RiskLevel   string
	RiskScore   int
	Explanation string
	Suggestion  string
	Position    int
	CreatedAt   time.Time
}

// ClauseRepository defines the interface for clause storage operations
type ClauseRepository interface {
	Create(ctx context.Context, clause *Clause) error
	CreateBatch(ctx context.Context, clauses []*Clause) error
	GetByContractID(ctx context.Context, contractID uuid.UUID) ([]*Clause, error)
	DeleteByContractID(ctx context.Context, contractID uuid.UUID) error
}

// PostgresClauseRepository implements ClauseRepository using PostgreSQL
type PostgresClauseRepository struct {
	db *sql.DB
}

// NewPostgresClauseRepository creates a new PostgresClauseRepository
func NewPostgresClauseRepository(db *sql.DB) *PostgresClauseRepository {
	return &PostgresClauseRepository{db: db}
}

// Create inserts a new clause into the database
func (r *PostgresClauseRepository) Create(ctx context.Context, clause *Clause) error {
	if clause.ID == uuid.Nil {
		clause.ID = uuid.New()
	}
	if clause.CreatedAt.IsZero() {
		clause.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO clauses (id, contract_id, clause_text, clause_type, risk_level, risk_score, explanation, suggestion, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		clause.ID,
		clause.ContractID,
		clause.ClauseText,
		clause.ClauseType,
		clause.RiskLevel,
		clause.RiskScore,
		clause.Explanation,
		clause.Suggestion,
		clause.Position,
		clause.CreatedAt,
	)

	return err
}

// CreateBatch inserts multiple clauses in a single transaction
func (r *PostgresClauseRepository) CreateBatch(ctx context.Context, clauses []*Clause) error {
	if len(clauses) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO clauses (id, contract_id, clause_text, clause_type, risk_level, risk_score, explanation, suggestion, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range clauses {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}

		_, err := stmt.ExecContext(ctx,
			c.ID,
			c.ContractID,
			c.ClauseText,
			c.ClauseType,
			c.RiskLevel,
			c.RiskScore,
			c.Explanation,
			c.Suggestion,
			c.Position,
			c.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByContractID retrieves all clauses for a contract in document order
func (r *PostgresClauseRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) ([]*Clause, error) {
	query := `
		SELECT id, contract_id, clause_text, clause_type, risk_level, risk_score, explanation, suggestion, position, created_at
		FROM clauses
		WHERE contract_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clauses []*Clause
	for rows.Next() {
		clause := &Clause{}
		err := rows.Scan(
			&clause.ID,
			&clause.ContractID,
			&clause.ClauseText,
			&clause.ClauseType,
			&clause.RiskLevel,
			&clause.RiskScore,
			&clause.Explanation,
			&clause.Suggestion,
			&clause.Position,
			&clause.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return clauses, nil
}

// DeleteByContractID removes all clauses for a contract
func (r *PostgresClauseRepository) DeleteByContractID(ctx context.Context, contractID uuid.UUID) error {
	query := `DELETE FROM clauses WHERE contract_id = $1`
	_, err := r.db.ExecContext(ctx, query, contractID)
	return err
}
