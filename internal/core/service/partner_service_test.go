package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

func newPartnerSvc(accounts ...*domain.Account) (*PartnerService, *triggerFixture) {
	f := newTriggerFixture(accounts...)
	return NewPartnerService(f.repo, f.svc, zerolog.Nop()), f
}

func TestPartnerService_Register(t *testing.T) {
	svc, f := newPartnerSvc()

	got, err := svc.Register(context.Background(), ports.RegisterPartnerInput{
		Email:       " Owner@Agency.VN ",
		DisplayName: "Nguyen Van A",
		PhoneNumber: "0912 345 678",
		AgencyName:  "Saigon Tours",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected a generated id")
	}
	if got.UserType != "PARTNER" || got.Status != "pending_review" {
		t.Errorf("expected PARTNER/pending_review, got %s/%v", got.UserType, got.Status)
	}
	if got.Email != "owner@agency.vn" {
		t.Errorf("expected normalised email, got %q", got.Email)
	}
	if f.repo.get(got.ID) == nil {
		t.Error("account not stored")
	}
}

func TestPartnerService_RegisterWithExternalID(t *testing.T) {
	svc, _ := newPartnerSvc(partnerAccount("uid-1", domain.StatusPendingReview))

	if _, err := svc.Register(context.Background(), ports.RegisterPartnerInput{ID: "uid-2", Email: "x@y.vn"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Register(context.Background(), ports.RegisterPartnerInput{ID: "uid-1", Email: "x@y.vn"})
	if !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestPartnerService_Transitions(t *testing.T) {
	approve := func(s *PartnerService, id string) (*ports.AccountSummary, error) { return s.Approve(context.Background(), id) }
	reject := func(s *PartnerService, id string) (*ports.AccountSummary, error) { return s.Reject(context.Background(), id) }
	activate := func(s *PartnerService, id string) (*ports.AccountSummary, error) { return s.Activate(context.Background(), id) }

	cases := []struct {
		name    string
		from    domain.PartnerStatus
		action  func(*PartnerService, string) (*ports.AccountSummary, error)
		want    domain.PartnerStatus
		wantErr error
	}{
		{"approve", domain.StatusPendingReview, approve, domain.StatusPaymentPending, nil},
		{"reject pending review", domain.StatusPendingReview, reject, domain.StatusRejected, nil},
		{"reject payment pending", domain.StatusPaymentPending, reject, domain.StatusRejected, nil},
		{"activate", domain.StatusPaymentPending, activate, domain.StatusActive, nil},
		{"activate from review", domain.StatusPendingReview, activate, domain.StatusPendingReview, domain.ErrInvalidTransition},
		{"approve active", domain.StatusActive, approve, domain.StatusActive, domain.ErrInvalidTransition},
		{"reject rejected", domain.StatusRejected, reject, domain.StatusRejected, domain.ErrInvalidTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, f := newPartnerSvc(partnerAccount("p1", tc.from))

			_, err := tc.action(svc, "p1")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := f.repo.get("p1").Status.Partner; got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestPartnerService_ApproveCustomerFails(t *testing.T) {
	svc, _ := newPartnerSvc(customerAccount("c1", true))

	if _, err := svc.Approve(context.Background(), "c1"); !errors.Is(err, domain.ErrNotPartner) {
		t.Fatalf("expected ErrNotPartner, got %v", err)
	}
}

func TestPartnerService_NotFound(t *testing.T) {
	svc, _ := newPartnerSvc()

	if _, err := svc.Approve(context.Background(), "ghost"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := svc.Resend(context.Background(), "ghost"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestPartnerService_ToggleCustomer(t *testing.T) {
	svc, f := newPartnerSvc(customerAccount("c1", true), partnerAccount("p1", domain.StatusActive))
	wireLoop(f)

	got, err := svc.ToggleCustomer(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != false {
		t.Errorf("expected disabled, got %v", got.Status)
	}
	if len(f.mailer.emails()) != 0 || f.payments.requestCount() != 0 {
		t.Error("customer toggle fired a partner side effect")
	}

	if _, err := svc.ToggleCustomer(context.Background(), "p1"); !errors.Is(err, domain.ErrNotCustomer) {
		t.Fatalf("expected ErrNotCustomer, got %v", err)
	}
}

func TestPartnerService_Resend(t *testing.T) {
	svc, f := newPartnerSvc(partnerAccount("p1", domain.StatusActive))

	if err := svc.Resend(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.mailer.countSubject(subjectActivated) != 1 {
		t.Error("expected welcome email resent")
	}
}

func TestPartnerService_GetEnforcesOwnership(t *testing.T) {
	svc, _ := newPartnerSvc(partnerAccount("p1", domain.StatusActive), partnerAccount("p2", domain.StatusActive))

	got, err := svc.Get(context.Background(), ports.GetAccountInput{ID: "p1", Role: domain.RolePartner, AccountID: "p1"})
	if err != nil {
		t.Fatalf("own account: unexpected error %v", err)
	}
	if got.Status != "active" {
		t.Errorf("expected active, got %v", got.Status)
	}

	_, err = svc.Get(context.Background(), ports.GetAccountInput{ID: "p2", Role: domain.RolePartner, AccountID: "p1"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := svc.Get(context.Background(), ports.GetAccountInput{ID: "p2", Role: domain.RoleAdmin}); err != nil {
		t.Fatalf("admin: unexpected error %v", err)
	}
}

func TestPartnerService_List(t *testing.T) {
	var seed []*domain.Account
	for i := 0; i < 5; i++ {
		seed = append(seed, partnerAccount(fmt.Sprintf("p%d", i), domain.StatusPendingReview))
	}
	seed = append(seed, partnerAccount("p9", domain.StatusActive), customerAccount("c1", true))
	svc, _ := newPartnerSvc(seed...)

	res, err := svc.List(context.Background(), ports.ListAccountsInput{PartnerStatus: "pending_review", Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 5 || res.TotalPages != 3 || len(res.Items) != 2 {
		t.Fatalf("unexpected page: total=%d pages=%d items=%d", res.Total, res.TotalPages, len(res.Items))
	}

	res, err = svc.List(context.Background(), ports.ListAccountsInput{UserType: "customer", Limit: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Limit != 100 || res.Total != 1 || res.Items[0].Status != true {
		t.Fatalf("unexpected customer page: %+v", res)
	}

	if _, err := svc.List(context.Background(), ports.ListAccountsInput{PartnerStatus: "approved"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// statusFlipAfterRead changes the stored status right after the service read
// it, the way a concurrent admin action or webhook would.
type statusFlipAfterRead struct {
	*stubAccountRepo
	to domain.PartnerStatus
}

func (r statusFlipAfterRead) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	a, err := r.stubAccountRepo.FindByID(ctx, id)
	if err == nil {
		r.mu.Lock()
		r.byID[id].Status = domain.PartnerState(r.to)
		r.mu.Unlock()
	}
	return a, err
}

func TestPartnerService_TransitionIsConditionalOnReadStatus(t *testing.T) {
	f := newTriggerFixture(partnerAccount("p1", domain.StatusPaymentPending))
	repo := statusFlipAfterRead{stubAccountRepo: f.repo, to: domain.StatusActive}
	svc := NewPartnerService(repo, f.svc, zerolog.Nop())

	_, err := svc.Reject(context.Background(), "p1")

	if !errors.Is(err, domain.ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}
	if got := f.repo.get("p1").Status.Partner; got != domain.StatusActive {
		t.Fatalf("active account was overwritten with %s", got)
	}
}
