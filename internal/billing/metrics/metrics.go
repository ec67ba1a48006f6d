package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for fees and payments.
type Metrics struct {
	PaymentsRecorded prometheus.Counter
	AmountApplied    prometheus.Counter
	FeesSettled      prometheus.Counter
	FeesOverdue      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PaymentsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_payments_recorded_total",
			Help: "Payments recorded",
		}),
		AmountApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_payment_amount_applied_total",
			Help: "Minor currency units applied to fees by new payments",
		}),
		FeesSettled: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_fees_settled_total",
			Help: "Fees that became fully paid",
		}),
		FeesOverdue: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_fees_overdue_total",
			Help: "Fees moved to the overdue status by the scheduled sweep",
		}),
	}
}

// RecordPayment counts a new payment and the amount it applies to fees.
func (m *Metrics) RecordPayment(applied int64) {
	m.PaymentsRecorded.Inc()
	m.AmountApplied.Add(float64(applied))
}

func (m *Metrics) IncrementFeesSettled() {
	m.FeesSettled.Inc()
}
