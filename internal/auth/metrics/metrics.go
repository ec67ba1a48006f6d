package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auth module.
type Metrics struct {
	Logins          *prometheus.CounterVec
	LoginDuration   prometheus.Histogram
	TokensRefreshed prometheus.Counter
	Logouts         prometheus.Counter
}

// New creates auth metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		LoginDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "condo_login_duration_seconds",
			Help:    "Duration of login attempts, dominated by password hashing",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		TokensRefreshed: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_tokens_refreshed_total",
			Help: "Access tokens issued from refresh tokens",
		}),
		Logouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_logouts_total",
			Help: "Refresh tokens revoked by logout",
		}),
	}
}

func (m *Metrics) IncrementLogin(outcome string) {
	m.Logins.WithLabelValues(outcome).Inc()
}

// ObserveLogin records the duration of a login attempt.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLogin(start time.Time) {
	m.LoginDuration.Observe(time.Since(start).Seconds())
}
