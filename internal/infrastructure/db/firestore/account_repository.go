package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

const (
	accountsCollection = "users"
	orderCodeField     = "payosOrderCode"
)

type AccountRepository struct {
	client *firestore.Client
}

func NewAccountRepository(client *firestore.Client) *AccountRepository {
	return &AccountRepository{client: client}
}

type accountFS struct {
	Email            string    `firestore:"email"`
	PhoneNumber      string    `firestore:"phoneNumber,omitempty"`
	AgencyName       string    `firestore:"agencyName,omitempty"`
	DisplayName      string    `firestore:"displayName,omitempty"`
	UserType         string    `firestore:"userType"`
	Status           any       `firestore:"status"`
	PaymentOrderCode *int64    `firestore:"payosOrderCode,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

func fromDomain(a *domain.Account) accountFS {
	return accountFS{
		Email:            a.Email,
		PhoneNumber:      a.PhoneNumber,
		AgencyName:       a.AgencyName,
		DisplayName:      a.DisplayName,
		UserType:         string(a.UserType),
		Status:           a.Status.Raw(a.UserType),
		PaymentOrderCode: a.PaymentOrderCode,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (d accountFS) toDomain(id string) (*domain.Account, error) {
	ut := domain.UserType(d.UserType)
	st, err := domain.ParseAccountStatus(ut, d.Status)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", id, err)
	}
	return &domain.Account{
		ID:               id,
		Email:            d.Email,
		PhoneNumber:      d.PhoneNumber,
		AgencyName:       d.AgencyName,
		DisplayName:      d.DisplayName,
		UserType:         ut,
		Status:           st,
		PaymentOrderCode: d.PaymentOrderCode,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}, nil
}

func decode(snap *firestore.DocumentSnapshot) (*domain.Account, error) {
	var d accountFS
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", snap.Ref.ID, err)
	}
	return d.toDomain(snap.Ref.ID)
}

// updates converts a patch into field updates, rejecting a status variant
// that does not fit the stored user type.
func updates(before *domain.Account, patch ports.AccountPatch, now time.Time) ([]firestore.Update, error) {
	ups := []firestore.Update{{Path: "updatedAt", Value: now}}
	if patch.Status != nil {
		isPartnerVariant := patch.Status.Partner != ""
		if isPartnerVariant != before.IsPartner() {
			return nil, fmt.Errorf("%w: status variant does not match user type %s", domain.ErrInvalidInput, before.UserType)
		}
		ups = append(ups, firestore.Update{Path: "status", Value: patch.Status.Raw(before.UserType)})
	}
	if patch.PaymentOrderCode != nil {
		ups = append(ups, firestore.Update{Path: orderCodeField, Value: *patch.PaymentOrderCode})
	}
	return ups, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.client.Collection(accountsCollection).Doc(a.ID).Create(ctx, fromDomain(a))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	snap, err := r.client.Collection(accountsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return decode(snap)
}

func (r *AccountRepository) FindByOrderCode(ctx context.Context, code int64) (*domain.Account, error) {
	snaps, err := r.client.Collection(accountsCollection).
		Where(orderCodeField, "==", code).
		Where("userType", "==", string(domain.UserTypePartner)).
		Limit(2).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("query by order code: %w", err)
	}

	switch len(snaps) {
	case 0:
		return nil, domain.ErrAccountNotFound
	case 1:
		return decode(snaps[0])
	default:
		return nil, domain.ErrAmbiguousOrderCode
	}
}

// Update reads and writes inside one transaction so before is exactly the
// state the write replaced.
func (r *AccountRepository) Update(ctx context.Context, id string, patch ports.AccountPatch) (*domain.Account, *domain.Account, error) {
	ref := r.client.Collection(accountsCollection).Doc(id)

	var before, after *domain.Account
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return domain.ErrAccountNotFound
			}
			return err
		}
		current, err := decode(snap)
		if err != nil {
			return err
		}
		if err := patch.Precondition(current); err != nil {
			return err
		}

		now := time.Now().UTC()
		ups, err := updates(current, patch, now)
		if err != nil {
			return err
		}
		if err := tx.Update(ref, ups); err != nil {
			return err
		}
		before, after = current, patch.Apply(current, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrMalformedStatus) ||
			errors.Is(err, domain.ErrStatusChanged) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("update account: %w", err)
	}
	return before, after, nil
}

func (r *AccountRepository) List(ctx context.Context, f ports.ListAccountsFilter) ([]*domain.Account, int64, error) {
	q := r.client.Collection(accountsCollection).Query
	if f.UserType != "" {
		q = q.Where("userType", "==", string(f.UserType))
	}
	if f.PartnerStatus != "" {
		q = q.Where("status", "==", string(f.PartnerStatus))
	}

	res, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}
	var total int64
	if v, ok := res["total"].(*firestorepb.Value); ok {
		total = v.GetIntegerValue()
	}

	snaps, err := q.OrderBy("createdAt", firestore.Desc).
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}

	out := make([]*domain.Account, 0, len(snaps))
	for _, s := range snaps {
		a, err := decode(s)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, total, nil
}
