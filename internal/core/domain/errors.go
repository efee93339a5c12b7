package domain

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrMalformedStatus    = errors.New("malformed account status")
	ErrNotPartner         = errors.New("account is not a partner")
	ErrNotCustomer        = errors.New("account is not a customer")
	ErrNothingToResend    = errors.New("no notification to resend for current status")
	ErrAmbiguousOrderCode = errors.New("order code matches more than one account")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrStatusChanged      = errors.New("account status changed before the write")
)

// Operator authentication.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)

// External collaborators.
var (
	// ErrNotConfigured is returned at first use of a collaborator whose
	// credentials are missing from the environment.
	ErrNotConfigured = errors.New("collaborator not configured")
	// ErrInvalidSignature means a webhook payload failed HMAC verification.
	ErrInvalidSignature = errors.New("invalid payload signature")
)
