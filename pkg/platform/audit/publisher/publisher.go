// Package publisher emits audit events from services.
//
// Emit is synchronous and fail-closed: it writes to the audit store through the
// caller's context, so inside a transaction the event commits or rolls back with
// the business change. If the write fails the calling operation must fail.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "condo/pkg/platform/audit"
	"condo/pkg/requestcontext"
)

// Metrics holds Prometheus metrics for audit emission.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with audit metrics registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_audit_events_emitted_total",
			Help: "Total number of audit events persisted, by category",
		}, []string{"category"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_audit_persist_failures_total",
			Help: "Total number of audit events that failed to persist",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "condo_audit_persist_duration_seconds",
			Help:    "Time spent persisting an audit event",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}

// Publisher writes audit events to a store and mirrors them to the log.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for audit lines and error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit enriches event with request metadata and persists it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	if event.ActorID == "" {
		if principal, ok := requestcontext.PrincipalFrom(ctx); ok && principal.UserID != event.UserID {
			event.ActorID = principal.UserID.String()
		}
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.PersistFailures.Inc()
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: audit persistence failed",
				"action", event.Action,
				"user_id", event.UserID.String(),
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.PersistDuration.Observe(time.Since(start).Seconds())
		p.metrics.Emitted.WithLabelValues(string(event.Category)).Inc()
	}
	if p.logger != nil {
		p.logger.InfoContext(ctx, event.Action,
			"audit", true,
			"category", string(event.Category),
			"user_id", event.UserID.String(),
			"subject", event.Subject,
			"actor_id", event.ActorID,
			"reason", event.Reason,
			"request_id", event.RequestID,
		)
	}
	return nil
}
