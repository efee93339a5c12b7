package ports

import (
	"context"
	"time"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

// TriggerOutcome summarises what the trigger did with one change.
type TriggerOutcome string

const (
	TriggerIgnored    TriggerOutcome = "ignored"    // missing snapshot or not a partner
	TriggerUnchanged  TriggerOutcome = "unchanged"  // before and after status are equal
	TriggerDuplicate  TriggerOutcome = "duplicate"  // change id already handled
	TriggerNoEffect   TriggerOutcome = "no_effect"  // transition outside the table
	TriggerDispatched TriggerOutcome = "dispatched" // side effect attempted
)

// ChangeHandler reacts to account writes. It never fails: side-effect
// errors are logged and swallowed so the change is not redelivered.
type ChangeHandler interface {
	Handle(ctx context.Context, change domain.AccountChange) TriggerOutcome
}

// TriggerService is the status transition trigger plus its manual re-run.
type TriggerService interface {
	ChangeHandler
	// Resend re-runs the side effect owed by the account's current status.
	// Unlike Handle, it reports failures to the caller.
	Resend(ctx context.Context, account *domain.Account) error
}

// WebhookOutcome summarises how a payment callback was resolved.
type WebhookOutcome string

const (
	WebhookMalformed     WebhookOutcome = "malformed"
	WebhookUnverified    WebhookOutcome = "unverified"
	WebhookPaymentFailed WebhookOutcome = "payment_failed"
	WebhookUnmatched     WebhookOutcome = "unmatched"
	WebhookAmbiguous     WebhookOutcome = "ambiguous"
	WebhookActivated     WebhookOutcome = "activated"
	WebhookAlreadyActive WebhookOutcome = "already_active"
	WebhookStatusIgnored WebhookOutcome = "status_ignored"
	WebhookError         WebhookOutcome = "error"
)

// WebhookService resolves payment callbacks to partner accounts.
type WebhookService interface {
	// HandlePayment returns a non-nil error only for internal failures.
	HandlePayment(ctx context.Context, body []byte) (WebhookOutcome, error)
}

// RegisterPartnerInput carries the registration form.
type RegisterPartnerInput struct {
	ID          string // optional external uid
	Email       string
	DisplayName string
	PhoneNumber string
	AgencyName  string
}

// GetAccountInput carries the caller identity for RBAC.
type GetAccountInput struct {
	ID        string
	Role      domain.Role
	AccountID string
}

// ListAccountsInput carries the list endpoint parameters.
type ListAccountsInput struct {
	UserType      string
	PartnerStatus string
	Page          int
	Limit         int
}

// AccountSummary is the API view of an account. Status holds the raw
// variant for the account's user type.
type AccountSummary struct {
	ID               string
	Email            string
	PhoneNumber      string
	AgencyName       string
	DisplayName      string
	UserType         string
	Status           any
	PaymentOrderCode *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ListAccountsResult is returned by List.
type ListAccountsResult struct {
	Items      []AccountSummary
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// PartnerService is the admin action surface.
type PartnerService interface {
	Register(ctx context.Context, in RegisterPartnerInput) (*AccountSummary, error)
	Approve(ctx context.Context, id string) (*AccountSummary, error)
	Reject(ctx context.Context, id string) (*AccountSummary, error)
	Activate(ctx context.Context, id string) (*AccountSummary, error)
	ToggleCustomer(ctx context.Context, id string) (*AccountSummary, error)
	Resend(ctx context.Context, id string) error
	Get(ctx context.Context, in GetAccountInput) (*AccountSummary, error)
	List(ctx context.Context, in ListAccountsInput) (*ListAccountsResult, error)
}
