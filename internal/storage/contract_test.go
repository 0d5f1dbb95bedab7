package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestPostgresContractRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresContractRepository(db)

	contract := &Contract{
		UserID:   uuid.New(),
		Title:    "Freelance Agreement - Acme",
		Filename: "acme.txt",
		Content:  "contract text",
	}

	mock.ExpectExec("INSERT INTO contracts").
		WithArgs(sqlmock.AnyArg(), contract.UserID, contract.Title, contract.Filename,
			contract.Content, "", "", ContractStatusPending, []byte(nil),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), contract); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if contract.ID == uuid.Nil {
		t.Error("expected contract ID to be generated")
	}
	if contract.AnalysisStatus != ContractStatusPending {
		t.Errorf("expected pending status, got %s", contract.AnalysisStatus)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresContractRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresContractRepository(db)

	contractID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "filename", "content",
		"content_hash", "contract_type", "analysis_status", "analysis_data", "created_at", "updated_at"}).
		AddRow(contractID, userID, "NDA - Beta Corp", "nda.txt", "text", "abc123",
			"NDA", ContractStatusCompleted, []byte(`{"risk_score":12}`), now, now)

	mock.ExpectQuery("SELECT (.+) FROM contracts WHERE id").
		WithArgs(contractID).
		WillReturnRows(rows)

	contract, err := repo.GetByID(context.Background(), contractID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if contract == nil {
		t.Fatal("expected contract to be returned")
	}
	if contract.AnalysisStatus != ContractStatusCompleted {
		t.Errorf("expected completed status, got %s", contract.AnalysisStatus)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresContractRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresContractRepository(db)

	contractID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM contracts WHERE id").
		WithArgs(contractID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	contract, err := repo.GetByID(context.Background(), contractID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if contract != nil {
		t.Error("expected nil for missing contract")
	}
}

func TestPostgresContractRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresContractRepository(db)

	contractID := uuid.New()
	mock.ExpectExec("UPDATE contracts SET analysis_status").
		WithArgs(contractID, ContractStatusProcessing, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), contractID, ContractStatusProcessing); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
