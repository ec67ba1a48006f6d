package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for persons and residencies.
type Metrics struct {
	PrincipalConflicts *prometheus.CounterVec
	ResidenciesCreated *prometheus.CounterVec
	PersonsDeleted     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PrincipalConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_principal_conflicts_total",
			Help: "Writes rejected because the unit already has a principal residency",
		}, []string{"source"}),
		ResidenciesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_residencies_created_total",
			Help: "Residencies created, by whether they became principal",
		}, []string{"principal"}),
		PersonsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_persons_deleted_total",
			Help: "Person profiles deleted with their residencies",
		}),
	}
}

func (m *Metrics) IncrementPrincipalConflict(source string) {
	m.PrincipalConflicts.WithLabelValues(source).Inc()
}

func (m *Metrics) IncrementResidencyCreated(principal bool) {
	label := "false"
	if principal {
		label = "true"
	}
	m.ResidenciesCreated.WithLabelValues(label).Inc()
}
