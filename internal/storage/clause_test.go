package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestPostgresClauseRepository_CreateBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresClauseRepository(db)

	contractID := uuid.New()
	clauses := []*Clause{
		{ContractID: contractID, ClauseText: "clause one", ClauseType: "termination", RiskLevel: "high", RiskScore: 85, Position: 0},
		{ContractID: contractID, ClauseText: "clause two", ClauseType: "payment", RiskLevel: "medium", RiskScore: 55, Position: 120},
	}

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare("INSERT INTO clauses")
	for range clauses {
		prepared.ExpectExec().
			WithArgs(sqlmock.AnyArg(), contractID, sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	if err := repo.CreateBatch(context.Background(), clauses); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	for i, c := range clauses {
		if c.ID == uuid.Nil {
			t.Errorf("clause %d: expected ID to be generated", i)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresClauseRepository_CreateBatch_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresClauseRepository(db)

	if err := repo.CreateBatch(context.Background(), nil); err != nil {
		t.Errorf("expected no error for empty batch, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresClauseRepository_GetByContractID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresClauseRepository(db)

	contractID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "contract_id", "clause_text", "clause_type",
		"risk_level", "risk_score", "explanation", "suggestion", "position", "created_at"}).
		AddRow(uuid.New(), contractID, "clause one", "termination", "high", 85, "expl", "sugg", 0, now).
		AddRow(uuid.New(), contractID, "clause two", "payment", "medium", 55, "expl", "sugg", 120, now)

	mock.ExpectQuery("SELECT (.+) FROM clauses WHERE contract_id").
		WithArgs(contractID).
		WillReturnRows(rows)

	clauses, err := repo.GetByContractID(context.Background(), contractID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(clauses))
	}
	if clauses[0].Position != 0 || clauses[1].Position != 120 {
		t.Errorf("unexpected clause order: %d, %d", clauses[0].Position, clauses[1].Position)
	}
}
