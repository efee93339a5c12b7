package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

type stubOperatorRepo struct {
	ops map[string]*domain.Operator
}

func newStubOperatorRepo() *stubOperatorRepo {
	return &stubOperatorRepo{ops: make(map[string]*domain.Operator)}
}

func cloneOperator(o *domain.Operator) *domain.Operator {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

func (r *stubOperatorRepo) Create(_ context.Context, op *domain.Operator) (*domain.Operator, error) {
	if _, exists := r.ops[op.Username]; exists {
		return nil, domain.ErrUserExists
	}
	copy := cloneOperator(op)
	if copy.ID == "" {
		copy.ID = op.Username
	}
	r.ops[copy.Username] = cloneOperator(copy)
	return cloneOperator(copy), nil
}

func (r *stubOperatorRepo) FindByUsername(_ context.Context, username string) (*domain.Operator, error) {
	op, ok := r.ops[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneOperator(op), nil
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubOperatorRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	op, err := svc.Register(context.Background(), "Alice", "pass123", "alice@agency.vn", domain.RolePartner, "acc_1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if op == nil {
		t.Fatalf("expected operator, got nil")
	}
	if op.Username != "alice" {
		t.Fatalf("expected normalised username, got %q", op.Username)
	}
	if op.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if op.Role != domain.RolePartner || op.AccountID != "acc_1" {
		t.Fatalf("unexpected role binding: %s %s", op.Role, op.AccountID)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	repo := newStubOperatorRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	if _, err := svc.Register(context.Background(), "", "pass", "", domain.RoleAdmin, ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := svc.Register(context.Background(), "bob", "pass", "bob@example.com", "client", ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for bad role, got %v", err)
	}

	if _, err := svc.Register(context.Background(), "bob", "pass", "bob@example.com", domain.RolePartner, ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unbound partner, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubOperatorRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	_, _ = svc.Register(context.Background(), "bob", "pass", "bob@example.com", domain.RoleAdmin, "")
	if _, err := svc.Register(context.Background(), "bob", "pass2", "bob@example.com", domain.RoleAdmin, ""); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	repo := newStubOperatorRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	created, err := svc.EnsureAdmin(context.Background(), "root", "s3cret")
	if err != nil || !created {
		t.Fatalf("expected admin created, got %v (%v)", created, err)
	}
	created, err = svc.EnsureAdmin(context.Background(), "root", "other")
	if err != nil || created {
		t.Fatalf("expected existing admin kept, got %v (%v)", created, err)
	}
	if _, _, err := svc.Login(context.Background(), "root", "s3cret"); err != nil {
		t.Fatalf("bootstrap password replaced: %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubOperatorRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	if _, err := svc.Register(context.Background(), "carol", "s3cret", "carol@example.com", domain.RolePartner, "acc_9"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, op, err := svc.Login(context.Background(), "carol", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if op == nil || op.Username != "carol" {
		t.Fatalf("unexpected operator: %+v", op)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["role"] != string(domain.RolePartner) || claims["account_id"] != "acc_9" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	repo := newStubOperatorRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	_, _ = svc.Register(context.Background(), "dave", "goodpass", "dave@example.com", domain.RoleAdmin, "")
	if _, _, err := svc.Login(context.Background(), "dave", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	repo := newStubOperatorRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	if _, _, err := svc.Login(context.Background(), "ghost", "pass"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
