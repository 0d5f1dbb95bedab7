package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// CorpusClause is a historical clause with its embedding, the durable
// backing of the similarity index
type CorpusClause struct {
	ID          uuid.UUID
	ClauseText  string
	ClauseType  string
	IsFavorable bool
	Explanation string
	Embedding   pgvector.Vector
	CreatedAt   time.Time
}

// CorpusClauseWithSimilarity pairs a corpus clause with its similarity to
// a query vector
type CorpusClauseWithSimilarity struct {
	Clause     *CorpusClause
	Similarity float64
}

// CorpusRepository defines the interface for the historical clause corpus
type CorpusRepository interface {
	Upsert(ctx context.Context, clause *CorpusClause) error
	GetAll(ctx context.Context) ([]*CorpusClause, error)
	FindSimilar(ctx context.Context, embedding pgvector.Vector, limit int) ([]*CorpusClauseWithSimilarity, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostgresCorpusRepository implements CorpusRepository using PostgreSQL
// with pgvector
type PostgresCorpusRepository struct {
	db *sql.DB
}

// NewPostgresCorpusRepository creates a new PostgresCorpusRepository
func NewPostgresCorpusRepository(db *sql.DB) *PostgresCorpusRepository {
	return &PostgresCorpusRepository{db: db}
}

// Upsert inserts a corpus clause, replacing the record and vector when the
// clause ID already exists
func (r *PostgresCorpusRepository) Upsert(ctx context.Context, clause *CorpusClause) error {
	if clause.ID == uuid.Nil {
		clause.ID = uuid.New()
	}
	if clause.CreatedAt.IsZero() {
		clause.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO clause_corpus (id, clause_text, clause_type, is_favorable, explanation, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET clause_text = EXCLUDED.clause_text,
		    clause_type = EXCLUDED.clause_type,
		    is_favorable = EXCLUDED.is_favorable,
		    explanation = EXCLUDED.explanation,
		    embedding = EXCLUDED.embedding
	`

	_, err := r.db.ExecContext(ctx, query,
		clause.ID,
		clause.ClauseText,
		clause.ClauseType,
		clause.IsFavorable,
		clause.Explanation,
		clause.Embedding,
		clause.CreatedAt,
	)

	return err
}

// GetAll retrieves the whole corpus, oldest first, for warming the
// in-memory index at startup
func (r *PostgresCorpusRepository) GetAll(ctx context.Context) ([]*CorpusClause, error) {
	query := `
		SELECT id, clause_text, clause_type, is_favorable, explanation, embedding, created_at
		FROM clause_corpus
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clauses []*CorpusClause
	for rows.Next() {
		clause := &CorpusClause{}
		err := rows.Scan(
			&clause.ID,
			&clause.ClauseText,
			&clause.ClauseType,
			&clause.IsFavorable,
			&clause.Explanation,
			&clause.Embedding,
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

// FindSimilar finds corpus clauses similar to the given embedding using
// pgvector cosine distance
func (r *PostgresCorpusRepository) FindSimilar(ctx context.Context, embedding pgvector.Vector, limit int) ([]*CorpusClauseWithSimilarity, error) {
	if limit <= 0 {
		limit = 10
	}

	// Cosine distance is 1 - cosine_similarity
	query := `
		SELECT id, clause_text, clause_type, is_favorable, explanation, embedding, created_at,
			   1 - (embedding <=> $1) as similarity
		FROM clause_corpus
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, embedding, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*CorpusClauseWithSimilarity
	for rows.Next() {
		clause := &CorpusClause{}
		var similarity float64
		err := rows.Scan(
			&clause.ID,
			&clause.ClauseText,
			&clause.ClauseType,
			&clause.IsFavorable,
			&clause.Explanation,
			&clause.Embedding,
			&clause.CreatedAt,
			&similarity,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, &CorpusClauseWithSimilarity{
			Clause:     clause,
			Similarity: similarity,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// Delete removes a clause from the corpus
func (r *PostgresCorpusRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM clause_corpus WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
