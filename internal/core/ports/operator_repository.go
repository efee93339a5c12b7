package ports

import (
	"context"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

// OperatorRepository defines persistence for console operators.
type OperatorRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.Operator, error)
	Create(ctx context.Context, op *domain.Operator) (*domain.Operator, error)
}
