// Package metrics exposes the Prometheus counters of the chatbot.
//
// Every observer method is safe on a nil *Metrics so components can run
// without instrumentation in tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and histograms for inbound handling, delivery
// and the background scanner.
type Metrics struct {
	inboundTotal     *prometheus.CounterVec
	intentTotal      *prometheus.CounterVec
	outboundTotal    *prometheus.CounterVec
	scannerSent      *prometheus.CounterVec
	scannerFailures  prometheus.Counter
	dispatchDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg, or with the
// default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicai",
			Subsystem: "inbound",
			Name:      "messages_total",
			Help:      "Inbound user events by channel and outcome",
		}, []string{"channel", "status"}),
		intentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicai",
			Subsystem: "dispatch",
			Name:      "intents_total",
			Help:      "Classified intents",
		}, []string{"intent"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicai",
			Subsystem: "outbound",
			Name:      "messages_total",
			Help:      "Outbound deliveries by message kind and result",
		}, []string{"kind", "status"}),
		scannerSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicai",
			Subsystem: "scanner",
			Name:      "notifications_total",
			Help:      "Notifications produced by the reminder and pickup scanner",
		}, []string{"kind"}),
		scannerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medicai",
			Subsystem: "scanner",
			Name:      "tick_failures_total",
			Help:      "Scanner ticks abandoned because the store failed",
		}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medicai",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent classifying and handling one inbound event",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.intentTotal, m.outboundTotal, m.scannerSent, m.scannerFailures, m.dispatchDuration)
	return m
}

func (m *Metrics) ObserveInbound(channel, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) ObserveIntent(intent string) {
	if m == nil {
		return
	}
	m.intentTotal.WithLabelValues(intent).Inc()
}

func (m *Metrics) ObserveOutbound(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) ObserveNotification(kind string) {
	if m == nil {
		return
	}
	m.scannerSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveTickFailure() {
	if m == nil {
		return
	}
	m.scannerFailures.Inc()
}

func (m *Metrics) ObserveDispatch(seconds float64) {
	if m == nil {
		return
	}
	m.dispatchDuration.Observe(seconds)
}
