package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsTotal       prometheus.Counter
	RegistrationFailures     *prometheus.CounterVec
	VerificationOutcomes     *prometheus.CounterVec
	StatusConflicts          prometheus.Counter
	WebhookSignatureFailures prometheus.Counter
	ProviderRequestDuration  *prometheus.HistogramVec
	RequestDuration          *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics with the given registerer.
// Pass prometheus.DefaultRegisterer in main; tests use a fresh registry so
// parallel suites don't collide on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouch_registrations_total",
			Help: "Total number of registrants created.",
		}),
		RegistrationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_registration_failures_total",
			Help: "Registration attempts rejected, by reason.",
		}, []string{"reason"}),
		VerificationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vouch_verification_outcomes_total",
			Help: "Terminal verification transitions applied, by result.",
		}, []string{"result"}),
		StatusConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouch_verification_status_conflicts_total",
			Help: "Conflicting terminal decisions resolved by last-write-wins.",
		}),
		WebhookSignatureFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouch_webhook_signature_failures_total",
			Help: "Inbound webhooks rejected for a bad payload digest.",
		}),
		ProviderRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vouch_provider_request_duration_seconds",
			Help:    "Latency of outbound calls to the KYC provider.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation", "outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vouch_http_request_duration_seconds",
			Help:    "Latency of inbound HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveProviderCall records one outbound provider call.
func (m *Metrics) ObserveProviderCall(operation string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ProviderRequestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
