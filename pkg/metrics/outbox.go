package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks relay of order lifecycle events to Pub/Sub.
type OutboxMetrics struct {
	dispositions *prometheus.CounterVec
	publishTime  prometheus.Histogram
	relayLag     prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	dispositions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by event type and disposition (published, retry, parked).",
	}, []string{"event_type", "disposition"})
	publishTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_publish_duration_seconds",
		Help:      "Time spent waiting for Pub/Sub to acknowledge a publish.",
		Buckets:   prometheus.DefBuckets,
	})
	relayLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_relay_lag_seconds",
		Help:      "Delay between an outbox row being written and its successful publish.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 15, 60, 300, 900},
	})
	reg.MustRegister(dispositions, publishTime, relayLag)
	return &OutboxMetrics{dispositions: dispositions, publishTime: publishTime, relayLag: relayLag}
}

func (o *OutboxMetrics) Disposition(eventType, disposition string) {
	if o == nil || o.dispositions == nil {
		return
	}
	o.dispositions.WithLabelValues(normalizeLabel(eventType), normalizeLabel(disposition)).Inc()
}

func (o *OutboxMetrics) ObservePublish(d time.Duration) {
	if o == nil || o.publishTime == nil {
		return
	}
	o.publishTime.Observe(d.Seconds())
}

func (o *OutboxMetrics) ObserveLag(d time.Duration) {
	if o == nil || o.relayLag == nil || d < 0 {
		return
	}
	o.relayLag.Observe(d.Seconds())
}
