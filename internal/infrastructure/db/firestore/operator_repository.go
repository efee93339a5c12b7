package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

const operatorsCollection = "operators"

// OperatorRepository keys operators by username, which makes Create the
// uniqueness check.
type OperatorRepository struct {
	client *firestore.Client
}

func NewOperatorRepository(client *firestore.Client) *OperatorRepository {
	return &OperatorRepository{client: client}
}

type operatorFS struct {
	Email        string    `firestore:"email,omitempty"`
	PasswordHash string    `firestore:"passwordHash"`
	Role         string    `firestore:"role"`
	AccountID    string    `firestore:"accountId,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func (r *OperatorRepository) Create(ctx context.Context, op *domain.Operator) (*domain.Operator, error) {
	doc := operatorFS{
		Email:        op.Email,
		PasswordHash: op.PasswordHash,
		Role:         string(op.Role),
		AccountID:    op.AccountID,
		CreatedAt:    op.CreatedAt,
		UpdatedAt:    op.UpdatedAt,
	}
	if _, err := r.client.Collection(operatorsCollection).Doc(op.Username).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("create operator: %w", err)
	}
	created := *op
	created.ID = op.Username
	return &created, nil
}

func (r *OperatorRepository) FindByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	snap, err := r.client.Collection(operatorsCollection).Doc(username).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get operator: %w", err)
	}

	var doc operatorFS
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode operator: %w", err)
	}
	return &domain.Operator{
		ID:           username,
		Username:     username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Role:         domain.Role(doc.Role),
		AccountID:    doc.AccountID,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}, nil
}
