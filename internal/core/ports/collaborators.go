package ports

import (
	"context"
	"encoding/json"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
)

// PaymentLinkProvider creates and cancels checkout sessions.
type PaymentLinkProvider interface {
	CreatePaymentLink(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentLink, error)
	CancelPaymentLink(ctx context.Context, orderCode int64, reason string) error
}

// WebhookVerifier checks the provider signature over a callback data object.
type WebhookVerifier interface {
	VerifyWebhookData(data json.RawMessage, signature string) error
}

// Email is a rendered transactional message.
type Email struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// OrderCodeGenerator issues unique payment correlation codes.
type OrderCodeGenerator interface {
	Next() int64
}

// ChangeDeduper guards against redelivery of the same change event.
type ChangeDeduper interface {
	// Claim returns true the first time a change id is seen.
	Claim(ctx context.Context, changeID string) (bool, error)
}

// EventPublisher broadcasts lifecycle events to other services.
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error
}

// ChangeSink accepts observed account changes for delivery to the trigger.
type ChangeSink interface {
	Enqueue(ctx context.Context, change domain.AccountChange) error
}
