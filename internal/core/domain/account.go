package domain

import (
	"fmt"
	"time"
)

// UserType discriminates how an account's status field must be read.
type UserType string

const (
	UserTypePartner  UserType = "PARTNER"
	UserTypeCustomer UserType = "CUSTOMER"
	UserTypeAdmin    UserType = "ADMIN"
)

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool {
	switch t {
	case UserTypePartner, UserTypeCustomer, UserTypeAdmin:
		return true
	}
	return false
}

// PartnerStatus represents the onboarding state of a partner account.
type PartnerStatus string

const (
	StatusPendingReview  PartnerStatus = "pending_review"
	StatusPaymentPending PartnerStatus = "payment_pending"
	StatusActive         PartnerStatus = "active"
	StatusRejected       PartnerStatus = "rejected"
)

// validTransitions defines the allowed partner state machine transitions.
// active and rejected are terminal.
var validTransitions = map[PartnerStatus][]PartnerStatus{
	StatusPendingReview:  {StatusPaymentPending, StatusRejected},
	StatusPaymentPending: {StatusActive, StatusRejected},
}

// Valid reports whether s is one of the four partner states.
func (s PartnerStatus) Valid() bool {
	switch s {
	case StatusPendingReview, StatusPaymentPending, StatusActive, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s PartnerStatus) CanTransitionTo(next PartnerStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SideEffect names the asynchronous work a partner transition owes.
type SideEffect string

const (
	EffectNone           SideEffect = ""
	EffectRequestPayment SideEffect = "request_payment"
	EffectWelcome        SideEffect = "welcome"
	EffectRejection      SideEffect = "rejection"
)

// SideEffectFor maps an observed status change to its side effect. Any pair
// outside the transition table, including from == to, yields EffectNone.
func SideEffectFor(from, to PartnerStatus) SideEffect {
	if from == to {
		return EffectNone
	}
	switch {
	case from == StatusPendingReview && to == StatusPaymentPending:
		return EffectRequestPayment
	case from == StatusPaymentPending && to == StatusActive:
		return EffectWelcome
	case (from == StatusPendingReview || from == StatusPaymentPending) && to == StatusRejected:
		return EffectRejection
	}
	return EffectNone
}

// AccountStatus is the polymorphic status field. Partner accounts carry a
// PartnerStatus, every other user type carries an enabled flag. Which variant
// is meaningful is decided by Account.UserType, never by the value itself.
type AccountStatus struct {
	Partner PartnerStatus
	Enabled bool
}

// PartnerState builds the partner variant.
func PartnerState(s PartnerStatus) AccountStatus { return AccountStatus{Partner: s} }

// EnabledState builds the boolean variant.
func EnabledState(enabled bool) AccountStatus { return AccountStatus{Enabled: enabled} }

// Raw returns the stored representation for the given user type: a string
// for partners, a bool for everyone else.
func (s AccountStatus) Raw(t UserType) any {
	if t == UserTypePartner {
		return string(s.Partner)
	}
	return s.Enabled
}

// ParseAccountStatus reads a stored status value according to the user type.
func ParseAccountStatus(t UserType, raw any) (AccountStatus, error) {
	if t == UserTypePartner {
		str, ok := raw.(string)
		if !ok {
			return AccountStatus{}, fmt.Errorf("%w: partner status must be a string, got %T", ErrMalformedStatus, raw)
		}
		ps := PartnerStatus(str)
		if !ps.Valid() {
			return AccountStatus{}, fmt.Errorf("%w: unknown partner status %q", ErrMalformedStatus, str)
		}
		return PartnerState(ps), nil
	}
	switch v := raw.(type) {
	case bool:
		return EnabledState(v), nil
	case nil:
		return EnabledState(false), nil
	}
	return AccountStatus{}, fmt.Errorf("%w: %s status must be a bool, got %T", ErrMalformedStatus, t, raw)
}

// Account is one user record. Only PARTNER accounts take part in the
// lifecycle state machine.
type Account struct {
	ID          string
	Email       string
	PhoneNumber string
	AgencyName  string
	DisplayName string
	UserType    UserType
	Status      AccountStatus
	// PaymentOrderCode is set when a payment link is issued and never cleared.
	PaymentOrderCode *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsPartner reports whether the account is subject to the partner lifecycle.
func (a *Account) IsPartner() bool { return a != nil && a.UserType == UserTypePartner }

// PartnerStatus returns the partner variant of the status. ok is false for
// non-partner accounts.
func (a *Account) PartnerStatus() (s PartnerStatus, ok bool) {
	if !a.IsPartner() {
		return "", false
	}
	return a.Status.Partner, true
}

// RecipientName is the name used to greet the account holder.
func (a *Account) RecipientName() string {
	switch {
	case a.AgencyName != "":
		return a.AgencyName
	case a.DisplayName != "":
		return a.DisplayName
	}
	return "Đối tác"
}

// Clone returns a deep copy so snapshots are never shared between events.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.PaymentOrderCode != nil {
		code := *a.PaymentOrderCode
		c.PaymentOrderCode = &code
	}
	return &c
}
