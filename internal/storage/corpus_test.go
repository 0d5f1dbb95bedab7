package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

func TestPostgresCorpusRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresCorpusRepository(db)

	clause := &CorpusClause{
		ClauseText:  "Company may terminate at any time without notice.",
		ClauseType:  "termination",
		IsFavorable: false,
		Explanation: "one-sided termination right",
		Embedding:   pgvector.NewVector([]float32{0.1, 0.2, 0.3}),
	}

	mock.ExpectExec("INSERT INTO clause_corpus (.+) ON CONFLICT").
		WithArgs(sqlmock.AnyArg(), clause.ClauseText, clause.ClauseType,
			clause.IsFavorable, clause.Explanation, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Upsert(context.Background(), clause); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if clause.ID == uuid.Nil {
		t.Error("expected clause ID to be generated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresCorpusRepository_FindSimilar(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresCorpusRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "clause_text", "clause_type", "is_favorable",
		"explanation", "embedding", "created_at", "similarity"}).
		AddRow(uuid.New(), "termination without notice", "termination", false, "risky", "[0.1,0.2,0.3]", now, 0.97).
		AddRow(uuid.New(), "mutual termination clause", "termination", true, "balanced", "[0.2,0.2,0.3]", now, 0.84)

	mock.ExpectQuery("SELECT (.+) FROM clause_corpus ORDER BY embedding").
		WithArgs(sqlmock.AnyArg(), 5).
		WillReturnRows(rows)

	results, err := repo.FindSimilar(context.Background(), pgvector.NewVector([]float32{0.1, 0.2, 0.3}), 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("expected results in descending similarity order")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresCorpusRepository_GetAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresCorpusRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "clause_text", "clause_type", "is_favorable",
		"explanation", "embedding", "created_at"}).
		AddRow(uuid.New(), "clause", "payment", false, "late payment terms", "[1,0,0]", now)

	mock.ExpectQuery("SELECT (.+) FROM clause_corpus ORDER BY created_at").
		WillReturnRows(rows)

	clauses, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(clauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(clauses))
	}
	if clauses[0].Embedding.Slice()[0] != 1 {
		t.Errorf("unexpected embedding %v", clauses[0].Embedding.Slice())
	}
}
