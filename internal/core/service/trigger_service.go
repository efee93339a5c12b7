package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/travelog/partner-lifecycle/internal/api/metrics"
	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/notification"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

const (
	defaultActivationFee     = 10000
	defaultDescriptionPrefix = "KICHHOAT"
	defaultAppBaseURL        = "http://localhost:5173"
	defaultProviderTimeout   = 15 * time.Second
	defaultMailTimeout       = 20 * time.Second
	publishTimeout           = 5 * time.Second

	// maxDescriptionLen is the provider's limit on the transfer description, in characters.
	maxDescriptionLen = 25
	phoneDigits       = 9
)

// TriggerConfig holds the values the side effects are built from.
type TriggerConfig struct {
	ActivationFee     int64
	DescriptionPrefix string
	AppBaseURL        string
	ProviderTimeout   time.Duration
	MailTimeout       time.Duration
}

func (c TriggerConfig) withDefaults() TriggerConfig {
	if c.ActivationFee <= 0 {
		c.ActivationFee = defaultActivationFee
	}
	if c.DescriptionPrefix == "" {
		c.DescriptionPrefix = defaultDescriptionPrefix
	}
	if c.AppBaseURL == "" {
		c.AppBaseURL = defaultAppBaseURL
	}
	c.AppBaseURL = strings.TrimRight(c.AppBaseURL, "/")
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = defaultProviderTimeout
	}
	if c.MailTimeout <= 0 {
		c.MailTimeout = defaultMailTimeout
	}
	return c
}

// TriggerDeps are the collaborators of the trigger. Dedup and Events are
// optional.
type TriggerDeps struct {
	// Accounts must be the undecorated store. The order code write happens on
	// a dispatcher worker and must not be fed back into the queue it drains.
	Accounts ports.AccountRepository
	Payments ports.PaymentLinkProvider
	Mailer   ports.Mailer
	Codes    ports.OrderCodeGenerator
	Dedup    ports.ChangeDeduper
	Events   ports.EventPublisher
}

type triggerService struct {
	accounts ports.AccountRepository
	payments ports.PaymentLinkProvider
	mailer   ports.Mailer
	codes    ports.OrderCodeGenerator
	dedup    ports.ChangeDeduper
	events   ports.EventPublisher
	cfg      TriggerConfig
	log      zerolog.Logger
}

// NewTriggerService returns the status transition trigger.
func NewTriggerService(deps TriggerDeps, cfg TriggerConfig, log zerolog.Logger) ports.TriggerService {
	return &triggerService{
		accounts: deps.Accounts,
		payments: deps.Payments,
		mailer:   deps.Mailer,
		codes:    deps.Codes,
		dedup:    deps.Dedup,
		events:   deps.Events,
		cfg:      cfg.withDefaults(),
		log:      log,
	}
}

// Handle inspects one account write and dispatches the side effect owed by
// the partner transition, if any.
func (s *triggerService) Handle(ctx context.Context, change domain.AccountChange) ports.TriggerOutcome {
	start := time.Now()
	outcome := s.handle(ctx, change)
	metrics.TriggerOutcomesTotal.WithLabelValues(string(outcome)).Inc()
	metrics.TriggerDuration.WithLabelValues(string(outcome)).Observe(time.Since(start).Seconds())
	return outcome
}

func (s *triggerService) handle(ctx context.Context, change domain.AccountChange) ports.TriggerOutcome {
	// 1. Only partner accounts with both snapshots are in scope.
	if change.Before == nil || change.After == nil || !change.After.IsPartner() {
		return ports.TriggerIgnored
	}
	to := change.After.Status.Partner
	from, _ := change.Before.PartnerStatus()

	// 2. Same-status writes break the webhook -> trigger cycle.
	if from == to {
		return ports.TriggerUnchanged
	}

	// 3. Redelivered change events are skipped.
	if change.ID != "" && s.dedup != nil {
		first, err := s.dedup.Claim(ctx, change.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("change_id", change.ID).Msg("dedup claim failed, handling anyway")
		} else if !first {
			s.log.Debug().Str("change_id", change.ID).Msg("duplicate change skipped")
			return ports.TriggerDuplicate
		}
	}

	metrics.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()

	log := s.log.With().
		Str("account_id", change.After.ID).
		Str("status_from", string(from)).
		Str("status_to", string(to)).
		Str("change_id", change.ID).
		Logger()

	effect := domain.SideEffectFor(from, to)
	event := domain.StatusChangedEvent{
		AccountID:  change.After.ID,
		From:       from,
		To:         to,
		Effect:     effect,
		OccurredAt: change.ObservedAt,
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if effect == domain.EffectNone {
		log.Debug().Msg("transition has no side effect")
		s.publish(ctx, event)
		return ports.TriggerNoEffect
	}

	// 4. Best effort: the status write is already durable, so failures are
	// logged and never surfaced to the change source.
	code, err := s.apply(ctx, change.After, effect)
	event.OrderCode = code
	if err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues(string(effect)).Inc()
		log.Error().Err(err).Str("effect", string(effect)).Msg("side effect failed, resend required")
	} else {
		log.Info().Str("effect", string(effect)).Msg("side effect dispatched")
	}

	s.publish(ctx, event)
	return ports.TriggerDispatched
}

// Resend re-runs the side effect for the account's current status. A stale
// payment link is cancelled before a new one is issued; if the cancel fails
// the resend stops and the stored order code stays in place.
func (s *triggerService) Resend(ctx context.Context, account *domain.Account) error {
	status, ok := account.PartnerStatus()
	if !ok {
		return domain.ErrNotPartner
	}

	var effect domain.SideEffect
	switch status {
	case domain.StatusPaymentPending:
		if account.PaymentOrderCode != nil {
			if err := s.cancelLink(ctx, account.ID, *account.PaymentOrderCode); err != nil {
				return fmt.Errorf("resend %s: %w", domain.EffectRequestPayment, err)
			}
		}
		effect = domain.EffectRequestPayment
	case domain.StatusActive:
		effect = domain.EffectWelcome
	case domain.StatusRejected:
		effect = domain.EffectRejection
	default:
		return fmt.Errorf("resend for %s: %w", status, domain.ErrNothingToResend)
	}

	if _, err := s.apply(ctx, account, effect); err != nil {
		metrics.SideEffectFailuresTotal.WithLabelValues(string(effect)).Inc()
		return fmt.Errorf("resend %s: %w", effect, err)
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("effect", string(effect)).
		Msg("side effect resent")
	return nil
}

func (s *triggerService) apply(ctx context.Context, account *domain.Account, effect domain.SideEffect) (*int64, error) {
	switch effect {
	case domain.EffectRequestPayment:
		return s.requestPayment(ctx, account)
	case domain.EffectWelcome:
		return nil, s.notify(ctx, account, notification.KindActivated, notification.Data{
			DashboardURL: s.cfg.AppBaseURL + "/",
		})
	case domain.EffectRejection:
		return nil, s.notify(ctx, account, notification.KindRejected, notification.Data{})
	}
	return nil, fmt.Errorf("unknown side effect %q", effect)
}

func (s *triggerService) requestPayment(ctx context.Context, account *domain.Account) (*int64, error) {
	code := s.codes.Next()

	// The code is stored before the link exists so no webhook can arrive for
	// a code the store does not know.
	if _, _, err := s.accounts.Update(ctx, account.ID, ports.AccountPatch{PaymentOrderCode: &code}); err != nil {
		return nil, fmt.Errorf("persist order code: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	link, err := s.payments.CreatePaymentLink(pctx, domain.PaymentRequest{
		OrderCode:   code,
		Amount:      s.cfg.ActivationFee,
		Description: s.paymentDescription(account.PhoneNumber),
		CancelURL:   s.cfg.AppBaseURL + "/payment-fail",
		ReturnURL:   s.cfg.AppBaseURL + "/payment-success",
		BuyerName:   account.RecipientName(),
		BuyerEmail:  account.Email,
		BuyerPhone:  account.PhoneNumber,
	})
	if err != nil {
		metrics.PaymentLinksTotal.WithLabelValues("error").Inc()
		return &code, fmt.Errorf("create payment link: %w", err)
	}
	metrics.PaymentLinksTotal.WithLabelValues("ok").Inc()

	s.log.Info().
		Str("account_id", account.ID).
		Int64("order_code", code).
		Str("payment_link_id", link.PaymentLinkID).
		Msg("payment link created")

	return &code, s.notify(ctx, account, notification.KindPaymentRequested, notification.Data{
		Amount:      s.cfg.ActivationFee,
		CheckoutURL: link.CheckoutURL,
	})
}

func (s *triggerService) cancelLink(ctx context.Context, accountID string, code int64) error {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	if err := s.payments.CancelPaymentLink(pctx, code, "Replaced by a new payment link"); err != nil {
		s.log.Warn().Err(err).
			Str("account_id", accountID).
			Int64("order_code", code).
			Msg("failed to cancel previous payment link, keeping it")
		return fmt.Errorf("cancel payment link %d: %w", code, err)
	}
	return nil
}

func (s *triggerService) notify(ctx context.Context, account *domain.Account, kind notification.Kind, data notification.Data) error {
	if account.Email == "" {
		return fmt.Errorf("send %s email: account %s has no email", kind, account.ID)
	}
	data.Name = account.RecipientName()

	msg, err := notification.Render(kind, data)
	if err != nil {
		return err
	}

	mctx, cancel := context.WithTimeout(ctx, s.cfg.MailTimeout)
	defer cancel()

	err = s.mailer.Send(mctx, ports.Email{
		To:      account.Email,
		ToName:  data.Name,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		metrics.EmailsSentTotal.WithLabelValues(string(kind), "error").Inc()
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	metrics.EmailsSentTotal.WithLabelValues(string(kind), "ok").Inc()
	return nil
}

func (s *triggerService) publish(ctx context.Context, event domain.StatusChangedEvent) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.events.PublishStatusChanged(pctx, event); err != nil {
		s.log.Warn().Err(err).Str("account_id", event.AccountID).Msg("failed to publish status change")
	}
}

// paymentDescription builds "<prefix> <last 9 phone digits>" within the
// provider's length limit.
func (s *triggerService) paymentDescription(phone string) string {
	digits := strings.Join(strings.Fields(phone), "")
	if len(digits) > phoneDigits {
		digits = digits[len(digits)-phoneDigits:]
	}
	desc := []rune(strings.TrimSpace(s.cfg.DescriptionPrefix + " " + digits))
	if len(desc) > maxDescriptionLen {
		desc = desc[:maxDescriptionLen]
	}
	return strings.TrimSpace(string(desc))
}
