package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepository(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewPostgresRepository(db), mock
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now()
	user := &User{
		Email:        "sam@freelance.dev",
		PasswordHash: "bcrypt-hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), user.Email, user.PasswordHash, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if user.ID == "" {
		t.Error("expected user ID to be generated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRepository_GetByEmail(t *testing.T) {
	repo, mock := newMockRepository(t)

	userID := "123e4567-e89b-12d3-a456-426614174000"
	email := "sam@freelance.dev"
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "created_at", "updated_at"}).
		AddRow(userID, email, "bcrypt-hash", now, now)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs(email).
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != userID {
		t.Errorf("expected ID %s, got %s", userID, user.ID)
	}
	if user.Email != email {
		t.Errorf("expected email %s, got %s", email, user.Email)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRepository_NotFound(t *testing.T) {
	tests := []struct {
		name  string
		query string
		fetch func(repo *PostgresRepository, arg string) (*User, error)
	}{
		{
			name:  "by id",
			query: "SELECT (.+) FROM users WHERE id",
			fetch: func(repo *PostgresRepository, arg string) (*User, error) {
				return repo.GetByID(context.Background(), arg)
			},
		},
		{
			name:  "by email",
			query: "SELECT (.+) FROM users WHERE email",
			fetch: func(repo *PostgresRepository, arg string) (*User, error) {
				return repo.GetByEmail(context.Background(), arg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)

			mock.ExpectQuery(tt.query).
				WithArgs("missing").
				WillReturnError(sql.ErrNoRows)

			user, err := tt.fetch(repo, "missing")
			if !errors.Is(err, ErrUserNotFound) {
				t.Errorf("expected ErrUserNotFound, got %v", err)
			}
			if user != nil {
				t.Error("expected nil user")
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}
