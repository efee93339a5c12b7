package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// PartnerService implements the admin actions. Every status write goes
// through the store given here, which in production is the change-feed
// store, so the trigger observes it.
type PartnerService struct {
	repo    ports.AccountRepository
	trigger ports.TriggerService
	log     zerolog.Logger
}

func NewPartnerService(repo ports.AccountRepository, trigger ports.TriggerService, log zerolog.Logger) *PartnerService {
	return &PartnerService{repo: repo, trigger: trigger, log: log}
}

// Register creates a partner account awaiting review.
func (s *PartnerService) Register(ctx context.Context, in ports.RegisterPartnerInput) (*ports.AccountSummary, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	acc := &domain.Account{
		ID:          id,
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		AgencyName:  strings.TrimSpace(in.AgencyName),
		DisplayName: strings.TrimSpace(in.DisplayName),
		UserType:    domain.UserTypePartner,
		Status:      domain.PartnerState(domain.StatusPendingReview),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("register partner: %w", err)
	}

	s.log.Info().Str("account_id", acc.ID).Str("agency", acc.AgencyName).Msg("partner registered")
	return toSummary(acc), nil
}

// Approve moves a reviewed partner to payment_pending.
func (s *PartnerService) Approve(ctx context.Context, id string) (*ports.AccountSummary, error) {
	return s.transition(ctx, id, domain.StatusPaymentPending)
}

// Reject closes a partner application.
func (s *PartnerService) Reject(ctx context.Context, id string) (*ports.AccountSummary, error) {
	return s.transition(ctx, id, domain.StatusRejected)
}

// Activate confirms a payment received outside the provider.
func (s *PartnerService) Activate(ctx context.Context, id string) (*ports.AccountSummary, error) {
	return s.transition(ctx, id, domain.StatusActive)
}

func (s *PartnerService) transition(ctx context.Context, id string, next domain.PartnerStatus) (*ports.AccountSummary, error) {
	acc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current, ok := acc.PartnerStatus()
	if !ok {
		return nil, domain.ErrNotPartner
	}
	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, current, next)
	}

	// Conditional on the status the transition was validated against.
	status := domain.PartnerState(next)
	_, after, err := s.repo.Update(ctx, id, ports.AccountPatch{Status: &status, ExpectStatus: &current})
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.log.Info().
		Str("account_id", id).
		Str("status_from", string(current)).
		Str("status_to", string(next)).
		Msg("partner status changed by admin")
	return toSummary(after), nil
}

// ToggleCustomer flips the enabled flag of a customer account.
func (s *PartnerService) ToggleCustomer(ctx context.Context, id string) (*ports.AccountSummary, error) {
	acc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc.UserType != domain.UserTypeCustomer {
		return nil, domain.ErrNotCustomer
	}

	status := domain.EnabledState(!acc.Status.Enabled)
	_, after, err := s.repo.Update(ctx, id, ports.AccountPatch{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("toggle customer: %w", err)
	}

	s.log.Info().Str("account_id", id).Bool("enabled", after.Status.Enabled).Msg("customer toggled")
	return toSummary(after), nil
}

// Resend re-runs the side effect of the partner's current status.
func (s *PartnerService) Resend(ctx context.Context, id string) error {
	acc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.trigger.Resend(ctx, acc)
}

// Get returns one account. Partners may only read their own.
func (s *PartnerService) Get(ctx context.Context, in ports.GetAccountInput) (*ports.AccountSummary, error) {
	if in.Role == domain.RolePartner && in.AccountID != in.ID {
		return nil, domain.ErrForbidden
	}
	acc, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return toSummary(acc), nil
}

// List returns a page of accounts.
func (s *PartnerService) List(ctx context.Context, in ports.ListAccountsInput) (*ports.ListAccountsResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := ports.ListAccountsFilter{
		UserType:      domain.UserType(strings.ToUpper(in.UserType)),
		PartnerStatus: domain.PartnerStatus(in.PartnerStatus),
		Page:          page,
		Limit:         limit,
	}
	if filter.UserType != "" && !filter.UserType.Valid() {
		return nil, fmt.Errorf("%w: unknown user type %q", domain.ErrInvalidInput, in.UserType)
	}
	if filter.PartnerStatus != "" {
		if !filter.PartnerStatus.Valid() {
			return nil, fmt.Errorf("%w: unknown partner status %q", domain.ErrInvalidInput, in.PartnerStatus)
		}
		filter.UserType = domain.UserTypePartner
	}

	accounts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	items := make([]ports.AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, *toSummary(a))
	}

	return &ports.ListAccountsResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func toSummary(a *domain.Account) *ports.AccountSummary {
	return &ports.AccountSummary{
		ID:               a.ID,
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
