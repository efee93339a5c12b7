package ports

import (
	"context"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, email string, role domain.Role, accountID string) (*domain.Operator, error)
	Login(ctx context.Context, username, password string) (string, *domain.Operator, error)
}
