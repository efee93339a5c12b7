package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

// AccountPatch is a partial write. Nil fields are left untouched; every
// successful write refreshes updatedAt.
type AccountPatch struct {
	Status           *domain.AccountStatus
	PaymentOrderCode *int64
	// ExpectStatus makes the write conditional: it only applies while the
	// stored account is a partner in this status. A miss is ErrStatusChanged.
	ExpectStatus *domain.PartnerStatus
}

// ListAccountsFilter carries the query parameters for listing accounts.
type ListAccountsFilter struct {
	UserType      domain.UserType      // optional
	PartnerStatus domain.PartnerStatus // optional, only meaningful with UserType PARTNER
	Page          int                  // 1-based
	Limit         int
}

// AccountRepository is the partner record store.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// FindByOrderCode looks up the PARTNER account holding the order code.
	// It returns ErrAccountNotFound on no match and ErrAmbiguousOrderCode
	// when more than one account holds it.
	FindByOrderCode(ctx context.Context, code int64) (*domain.Account, error)
	// Update applies patch atomically and returns the document as it was
	// immediately before and after the write.
	Update(ctx context.Context, id string, patch AccountPatch) (before, after *domain.Account, err error)
	List(ctx context.Context, filter ListAccountsFilter) ([]*domain.Account, int64, error)
}

// Precondition reports ErrStatusChanged when a no longer satisfies
// ExpectStatus. Stores evaluate it against the state they are replacing.
func (p AccountPatch) Precondition(a *domain.Account) error {
	if p.ExpectStatus == nil {
		return nil
	}
	current, ok := a.PartnerStatus()
	if !ok || current != *p.ExpectStatus {
		return fmt.Errorf("%w: expected %s, found %s", domain.ErrStatusChanged, *p.ExpectStatus, current)
	}
	return nil
}

// Apply returns a copy of a with the patch applied and UpdatedAt set to now.
// Stores use it to derive the after snapshot of an atomic write.
func (p AccountPatch) Apply(a *domain.Account, now time.Time) *domain.Account {
	out := a.Clone()
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.PaymentOrderCode != nil {
		code := *p.PaymentOrderCode
		out.PaymentOrderCode = &code
	}
	out.UpdatedAt = now
	return out
}
