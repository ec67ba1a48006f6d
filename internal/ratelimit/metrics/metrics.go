package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitRejections *prometheus.CounterVec
	RateLimitDegraded   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RateLimitRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter by endpoint class",
		}, []string{"class"}),
		RateLimitDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_ratelimit_degraded_checks_total",
			Help: "Rate limit checks served by the in-memory fallback",
		}),
	}
}

func (m *Metrics) IncrementRejections(class string) {
	m.RateLimitRejections.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementDegraded() {
	m.RateLimitDegraded.Inc()
}
