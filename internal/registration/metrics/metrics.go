package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for self-service registration.
type Metrics struct {
	Registrations        *prometheus.CounterVec
	RegistrationDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_registrations_total",
			Help: "Registration attempts by outcome",
		}, []string{"outcome"}),
		RegistrationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "condo_registration_duration_seconds",
			Help:    "Duration of registrations, including password hashing",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementRegistration(outcome string) {
	m.Registrations.WithLabelValues(outcome).Inc()
}

// ObserveRegistration records the duration of a registration started at start.
func (m *Metrics) ObserveRegistration(start time.Time) {
	m.RegistrationDuration.Observe(time.Since(start).Seconds())
}
