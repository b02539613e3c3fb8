package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the payment core. A nil *Metrics is
// valid and records nothing, so components can run unmetered in tests.
type Metrics struct {
	callbacks         *prometheus.CounterVec
	signatureFailures prometheus.Counter
	outboundRequests  *prometheus.CounterVec
	gatewayErrors     prometheus.Counter
}

// NewMetrics registers the payment metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		callbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sispay",
				Name:      "callbacks_total",
				Help:      "Gateway callbacks processed, by mapped state",
			},
			[]string{"state"},
		),
		signatureFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sispay",
				Name:      "signature_failures_total",
				Help:      "Callbacks rejected with a signature mismatch",
			},
		),
		outboundRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sispay",
				Name:      "outbound_requests_total",
				Help:      "Signed outbound requests built, by flow",
			},
			[]string{"flow"},
		),
		gatewayErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sispay",
				Name:      "gateway_errors_total",
				Help:      "Error responses from the gateway REST endpoint",
			},
		),
	}
}

func (m *Metrics) CallbackProcessed(state string) {
	if m != nil {
		m.callbacks.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) SignatureFailure() {
	if m != nil {
		m.signatureFailures.Inc()
	}
}

func (m *Metrics) RequestBuilt(flow string) {
	if m != nil {
		m.outboundRequests.WithLabelValues(flow).Inc()
	}
}

func (m *Metrics) GatewayError() {
	if m != nil {
		m.gatewayErrors.Inc()
	}
}
