// Package sweep runs the overdue fee sweep on a cron schedule.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"condo/internal/billing/models"
)

// DefaultSchedule runs the sweep shortly after midnight UTC.
const DefaultSchedule = "5 0 * * *"

type Marker interface {
	MarkOverdue(ctx context.Context, today models.Date) (int, error)
}

type Scheduler struct {
	billing Marker
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Scheduler)

func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// WithClock overrides the time source used to compute today.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New validates spec, a standard five-field cron expression or a descriptor
// such as "@every 1h", and schedules the sweep.
func New(billing Marker, spec string, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		billing: billing,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger,
		timeout: time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid overdue sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// sweep in progress to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// RunOnce sweeps immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	moved, err := s.billing.MarkOverdue(ctx, models.NewDate(s.now()))
	if err != nil {
		s.logger.ErrorContext(ctx, "overdue fee sweep failed", "error", err)
		return 0, err
	}
	return moved, nil
}
