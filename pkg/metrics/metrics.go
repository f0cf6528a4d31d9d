package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LicensingMetrics records issuance and activation outcomes.
type LicensingMetrics struct {
	issued            prometheus.Counter
	webhookEvents     *prometheus.CounterVec
	activations       prometheus.Counter
	activationDenials *prometheus.CounterVec
}

// NewLicensingMetrics registers the licensing metrics on the provided registerer.
func NewLicensingMetrics(reg prometheus.Registerer) *LicensingMetrics {
	if reg == nil {
		return &LicensingMetrics{}
	}
	issued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "licenses_issued_total",
		Help: "Licenses created from checkout webhooks.",
	})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Stripe webhook events by outcome.",
	}, []string{"outcome"})
	activations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "activations_total",
		Help: "Successful machine activations, including idempotent re-activations.",
	})
	activationDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activation_denials_total",
		Help: "Rejected activation attempts by reason.",
	}, []string{"reason"})
	reg.MustRegister(issued, webhookEvents, activations, activationDenials)
	return &LicensingMetrics{
		issued:            issued,
		webhookEvents:     webhookEvents,
		activations:       activations,
		activationDenials: activationDenials,
	}
}

// IncIssued increments the issued-license counter.
func (m *LicensingMetrics) IncIssued() {
	if m == nil || m.issued == nil {
		return
	}
	m.issued.Inc()
}

// IncWebhookEvent increments the webhook outcome counter.
func (m *LicensingMetrics) IncWebhookEvent(outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncActivation increments the successful activation counter.
func (m *LicensingMetrics) IncActivation() {
	if m == nil || m.activations == nil {
		return
	}
	m.activations.Inc()
}

// IncActivationDenied increments the denial counter for the given reason.
func (m *LicensingMetrics) IncActivationDenied(reason string) {
	if m == nil || m.activationDenials == nil {
		return
	}
	m.activationDenials.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
