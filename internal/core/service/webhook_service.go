package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/travelog/partner-lifecycle/internal/api/metrics"
	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

// WebhookConfig controls signature enforcement.
type WebhookConfig struct {
	// LenientSignature logs a failed signature check and keeps processing
	// instead of stopping.
	LenientSignature bool
}

type webhookService struct {
	accounts ports.AccountRepository
	verifier ports.WebhookVerifier
	cfg      WebhookConfig
	log      zerolog.Logger
}

// NewWebhookService returns the payment webhook receiver. accounts should be
// the change-feed store so the activation write reaches the trigger.
func NewWebhookService(accounts ports.AccountRepository, verifier ports.WebhookVerifier, cfg WebhookConfig, log zerolog.Logger) ports.WebhookService {
	return &webhookService{accounts: accounts, verifier: verifier, cfg: cfg, log: log}
}

// HandlePayment resolves a payment callback to a partner account and
// advances it to active. The webhook never sends email itself.
func (s *webhookService) HandlePayment(ctx context.Context, body []byte) (ports.WebhookOutcome, error) {
	outcome, err := s.handle(ctx, body)
	metrics.WebhookRequestsTotal.WithLabelValues(string(outcome)).Inc()
	return outcome, err
}

func (s *webhookService) handle(ctx context.Context, body []byte) (ports.WebhookOutcome, error) {
	// 1. Malformed bodies are acknowledged so the provider stops retrying.
	var hook domain.PaymentWebhook
	if err := json.Unmarshal(body, &hook); err != nil || !hook.HasData() {
		s.log.Warn().Err(err).Int("body_bytes", len(body)).Msg("malformed payment webhook acknowledged")
		return ports.WebhookMalformed, nil
	}

	// 2. Signature over the data object.
	if err := s.verifier.VerifyWebhookData(hook.Data, hook.Signature); err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return ports.WebhookError, fmt.Errorf("verify webhook: %w", err)
		}
		if !s.cfg.LenientSignature {
			s.log.Warn().Err(err).Str("code", hook.Code).Msg("webhook signature rejected")
			return ports.WebhookUnverified, nil
		}
		s.log.Warn().Err(err).Str("code", hook.Code).Msg("webhook signature invalid, processing in lenient mode")
	}

	// 3. Failed payments need no lookup.
	if hook.Code != domain.PaymentSuccessCode {
		s.log.Info().Str("code", hook.Code).Str("desc", hook.Desc).Msg("non-success payment acknowledged")
		return ports.WebhookPaymentFailed, nil
	}

	var data domain.PaymentData
	if err := json.Unmarshal(hook.Data, &data); err != nil || data.OrderCode == 0 {
		s.log.Warn().Err(err).Msg("payment webhook without a usable order code acknowledged")
		return ports.WebhookMalformed, nil
	}
	code := int64(data.OrderCode)

	// 4. Exact match among partner accounts.
	account, err := s.accounts.FindByOrderCode(ctx, code)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		metrics.UnattributedPaymentsTotal.Inc()
		s.log.Error().
			Bool("alarm", true).
			Int64("order_code", code).
			Int64("amount", data.Amount).
			Str("reference", data.Reference).
			Msg("payment received with no matching partner account")
		return ports.WebhookUnmatched, nil
	case errors.Is(err, domain.ErrAmbiguousOrderCode):
		metrics.UnattributedPaymentsTotal.Inc()
		s.log.Error().
			Bool("alarm", true).
			Int64("order_code", code).
			Int64("amount", data.Amount).
			Msg("payment order code matches several partner accounts, nothing activated")
		return ports.WebhookAmbiguous, nil
	case err != nil:
		return ports.WebhookError, fmt.Errorf("find account by order code: %w", err)
	}

	log := s.log.With().Str("account_id", account.ID).Int64("order_code", code).Logger()

	// 5. Advance the state. Only payment_pending is activated; an active
	// account is a provider retry.
	switch account.Status.Partner {
	case domain.StatusActive:
		log.Info().Msg("duplicate payment webhook for active account")
		return ports.WebhookAlreadyActive, nil
	case domain.StatusPaymentPending:
	default:
		log.Error().
			Bool("alarm", true).
			Str("status", string(account.Status.Partner)).
			Int64("amount", data.Amount).
			Msg("payment received for account not awaiting payment, status left unchanged")
		return ports.WebhookStatusIgnored, nil
	}

	// The write only lands while the account is still awaiting payment, so an
	// admin rejection racing this callback is not overwritten.
	active := domain.PartnerState(domain.StatusActive)
	pending := domain.StatusPaymentPending
	_, _, err = s.accounts.Update(ctx, account.ID, ports.AccountPatch{Status: &active, ExpectStatus: &pending})
	switch {
	case errors.Is(err, domain.ErrStatusChanged):
		log.Error().
			Bool("alarm", true).
			Err(err).
			Int64("amount", data.Amount).
			Msg("account left payment_pending before activation, status left unchanged")
		return ports.WebhookStatusIgnored, nil
	case err != nil:
		return ports.WebhookError, fmt.Errorf("activate account: %w", err)
	}

	log.Info().Int64("amount", data.Amount).Msg("partner activated by payment")
	return ports.WebhookActivated, nil
}
