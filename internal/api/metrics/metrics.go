// Package metrics defines and registers all custom Prometheus metrics for the
// partner lifecycle service. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default Prometheus registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "partner"

// ── Trigger metrics ───────────────────────────────────────────────────────────

// TransitionsTotal counts observed partner status changes.
// Labels:
//   - from: status before the write
//   - to: status after the write
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of partner status changes observed by the trigger.",
	},
	[]string{"from", "to"},
)

// TriggerOutcomesTotal counts how the trigger resolved each change.
// Label:
//   - outcome: "ignored", "unchanged", "duplicate", "no_effect" or "dispatched"
var TriggerOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trigger_outcomes_total",
		Help:      "Total number of account changes handled by the trigger, by outcome.",
	},
	[]string{"outcome"},
)

// SideEffectFailuresTotal counts side effects that failed and were swallowed.
// Label:
//   - effect: "request_payment", "welcome" or "rejection"
var SideEffectFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "side_effect_failures_total",
		Help:      "Total number of failed side effects. Recover with the resend action.",
	},
	[]string{"effect"},
)

// TriggerDuration measures change handling from dequeue to last side effect.
// Label:
//   - outcome: trigger outcome
var TriggerDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "trigger_duration_seconds",
		Help:      "Duration of change handling in the status transition trigger.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

// ChangeQueueDepth tracks the number of changes waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index
var ChangeQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "change_queue_depth",
		Help:      "Current number of account changes pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Collaborator metrics ──────────────────────────────────────────────────────

// EmailsSentTotal counts transactional email attempts.
// Labels:
//   - template: "payment_requested", "activated" or "rejected"
//   - result: "ok" or "error"
var EmailsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Total number of transactional emails attempted, by template and result.",
	},
	[]string{"template", "result"},
)

// PaymentLinksTotal counts payment link creation attempts.
// Label:
//   - result: "ok" or "error"
var PaymentLinksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_links_total",
		Help:      "Total number of payment links requested from the provider.",
	},
	[]string{"result"},
)

// ── Webhook metrics ───────────────────────────────────────────────────────────

// WebhookRequestsTotal counts payment callbacks by resolution.
// Label:
//   - outcome: e.g. "activated", "unmatched", "malformed", "unverified"
var WebhookRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_requests_total",
		Help:      "Total number of payment webhook calls, by outcome.",
	},
	[]string{"outcome"},
)

// UnattributedPaymentsTotal counts successful payments that could not be
// tied to exactly one awaiting partner. Each increment needs manual
// reconciliation.
var UnattributedPaymentsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unattributed_payments_total",
		Help:      "Total number of successful payments with no single matching partner account.",
	},
)
