package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics counts outcomes of the purchase pipeline: checkout
// attempts, gateway webhook deliveries and download decisions.
type PipelineMetrics struct {
	checkout  *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
	downloads *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_attempts_total",
		Help:      "Checkout initiations by tier and outcome.",
	}, []string{"tier", "outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Payment gateway webhook deliveries by event type and outcome.",
	}, []string{"event_type", "outcome"})
	downloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "download_decisions_total",
		Help:      "Download gate decisions by tier and reason.",
	}, []string{"tier", "reason"})
	reg.MustRegister(checkout, webhooks, downloads)
	return &PipelineMetrics{checkout: checkout, webhooks: webhooks, downloads: downloads}
}

func (p *PipelineMetrics) CheckoutOutcome(tier, outcome string) {
	if p == nil || p.checkout == nil {
		return
	}
	p.checkout.WithLabelValues(normalizeLabel(tier), normalizeLabel(outcome)).Inc()
}

func (p *PipelineMetrics) WebhookOutcome(eventType, outcome string) {
	if p == nil || p.webhooks == nil {
		return
	}
	p.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (p *PipelineMetrics) DownloadDecision(tier, reason string) {
	if p == nil || p.downloads == nil {
		return
	}
	p.downloads.WithLabelValues(normalizeLabel(tier), normalizeLabel(reason)).Inc()
}
