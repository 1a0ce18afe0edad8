package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/auth"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/repositories"
)

type memUserStore struct {
	byEmail map[string]*entities.User
	byID    map[uuid.UUID]*entities.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byEmail: make(map[string]*entities.User),
		byID:    make(map[uuid.UUID]*entities.User),
	}
}

func (s *memUserStore) Create(ctx context.Context, user *entities.User) error {
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *memUserStore) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) FindByID(ctx context.Context, userID uuid.UUID) (*entities.User, error) {
	u, ok := s.byID[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func newTestUserService() *UserService {
	return NewUserService(newMemUserStore(), auth.NewJWTService("test-secret", 24))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@example.com", "tester", "secret-password")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.HashedPassword == "secret-password" {
		t.Fatal("password must be stored hashed")
	}

	logged, token, err := svc.Login(ctx, "a@example.com", "secret-password")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatal("login must return the registered user")
	}
	if token == "" {
		t.Fatal("login must issue a token")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestUserService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "tester", "secret-password"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := svc.Register(ctx, "a@example.com", "other", "secret-password"); err == nil {
		t.Fatal("duplicate email must be rejected")
	}
}

func TestRegisterShortPassword(t *testing.T) {
	svc := newTestUserService()

	if _, err := svc.Register(context.Background(), "a@example.com", "tester", "short"); err == nil {
		t.Fatal("short password must be rejected")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestUserService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "tester", "secret-password"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, _, err := svc.Login(ctx, "a@example.com", "wrong-password"); err == nil {
		t.Fatal("wrong password must be rejected")
	}
	if _, _, err := svc.Login(ctx, "b@example.com", "secret-password"); err == nil {
		t.Fatal("unknown email must be rejected")
	}
}
