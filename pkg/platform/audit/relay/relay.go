// Package relay moves audit events from the transactional outbox to the
// event stream. Delivery is at-least-once: entries are marked published only
// after the producer acknowledges them.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "condo/pkg/platform/audit"
	"condo/pkg/platform/tx"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Producer delivers a batch of outbox entries to the stream.
type Producer interface {
	Publish(ctx context.Context, entries []audit.OutboxEntry) error
}

// Metrics holds Prometheus metrics for the relay.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with relay metrics registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_audit_relay_published_total",
			Help: "Total number of outbox entries delivered to the audit stream",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "condo_audit_relay_failures_total",
			Help: "Total number of relay batches that failed",
		}),
	}
}

// Relay polls the outbox and publishes pending entries.
type Relay struct {
	outbox    audit.Outbox
	tx        tx.Runner
	producer  Producer
	logger    *slog.Logger
	metrics   *Metrics
	interval  time.Duration
	batchSize int
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func New(outbox audit.Outbox, runner tx.Runner, producer Producer, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		tx:        runner,
		producer:  producer,
		logger:    logger,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. Batch failures are logged and retried on
// the next tick; they never stop the loop.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					if r.metrics != nil {
						r.metrics.Failures.Inc()
					}
					r.logger.WarnContext(ctx, "audit relay batch failed", "error", err)
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were delivered.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var delivered int
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entries, err := r.outbox.FetchPending(txCtx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		if err := r.producer.Publish(txCtx, entries); err != nil {
			return err
		}
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		if err := r.outbox.MarkPublished(txCtx, ids, time.Now()); err != nil {
			return err
		}
		delivered = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if delivered > 0 {
		if r.metrics != nil {
			r.metrics.Published.Add(float64(delivered))
		}
		r.logger.DebugContext(ctx, "audit entries relayed", "count", delivered)
	}
	return delivered, nil
}
