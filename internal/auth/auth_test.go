package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// memoryRepository is an in-memory UserRepository for service tests
type memoryRepository struct {
	byEmail map[string]*User
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{byEmail: make(map[string]*User)}
}

func (r *memoryRepository) Create(ctx context.Context, user *User) error {
	user.ID = fmt.Sprintf("user-%d", len(r.byEmail)+1)
	r.byEmail[user.Email] = user
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func newTestService() (*JWTService, *memoryRepository) {
	repo := newMemoryRepository()
	config := DefaultConfig()
	config.SecretKey = "test-secret"
	return NewJWTService(config, repo), repo
}

func TestRegister_NormalizesEmail(t *testing.T) {
	service, repo := newTestService()

	user, err := service.Register(context.Background(), "  Sam@Freelance.DEV ", "long-enough-password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if user.Email != "sam@freelance.dev" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}
	if _, ok := repo.byEmail["sam@freelance.dev"]; !ok {
		t.Error("expected account stored under normalized email")
	}
}

func TestRegister_RejectsBadCredentials(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.Register(ctx, "not-an-email", "long-enough-password"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := service.Register(ctx, "", "long-enough-password"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("expected ErrInvalidEmail for empty address, got %v", err)
	}
	if _, err := service.Register(ctx, "sam@freelance.dev", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.Register(ctx, "sam@freelance.dev", "long-enough-password"); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	_, err := service.Register(ctx, "SAM@freelance.dev", "another-long-password")
	if !errors.Is(err, ErrAccountExists) {
		t.Errorf("expected ErrAccountExists for same address in different case, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.Register(ctx, "sam@freelance.dev", "long-enough-password"); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	if _, err := service.Login(ctx, "sam@freelance.dev", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := service.Login(ctx, "nobody@freelance.dev", "long-enough-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown account, got %v", err)
	}
}

func TestLoginAndValidateToken(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	user, err := service.Register(ctx, "sam@freelance.dev", "long-enough-password")
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	token, err := service.Login(ctx, "Sam@Freelance.dev", "long-enough-password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("expected claims for user %s, got %s", user.ID, claims.UserID)
	}
	if claims.Email != "sam@freelance.dev" {
		t.Errorf("unexpected claims email %q", claims.Email)
	}

	if _, err := service.ValidateToken(token + "tampered"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}
