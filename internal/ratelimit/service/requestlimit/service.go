// Package requestlimit applies the per-class client limits on top of a
// fixed-window bucket store.
package requestlimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"condo/internal/ratelimit/config"
	"condo/internal/ratelimit/metrics"
	"condo/internal/ratelimit/models"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/requestcontext"
)

// unconfiguredRetry is the Retry-After sent for a class with no limit.
const unconfiguredRetry = 60

// BucketStore counts requests per key in fixed windows.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Service struct {
	buckets BucketStore
	limits  *config.Config
	metrics *metrics.Metrics
	log     *slog.Logger
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithConfig replaces the default limits. A nil cfg keeps the defaults.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.limits = cfg
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}
	s := &Service{
		buckets: buckets,
		limits:  config.DefaultConfig(0),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckIP counts one request from ip against the window of class. Exempt
// networks pass without touching the store. A class without a configured
// limit is denied.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, window, ok := s.limits.GetIPLimit(class)
	if !ok {
		s.log.WarnContext(ctx, "rate limit not configured for class",
			"endpoint_class", class,
			"ip_prefix", models.AnonymizeIP(ip),
		)
		return &models.RateLimitResult{ResetAt: requestcontext.Now(ctx), RetryAfter: unconfiguredRetry}, nil
	}
	if s.limits.IsExempt(ip) {
		return &models.RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetAt:   requestcontext.Now(ctx).Add(window),
		}, nil
	}

	result, err := s.buckets.Allow(ctx, models.NewIPRateLimitKey(ip, class), limit, window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	if result.Allowed {
		return result, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementRejections(string(class))
	}
	s.log.InfoContext(ctx, "client throttled",
		"endpoint_class", class,
		"ip_prefix", models.AnonymizeIP(ip),
		"limit", limit,
		"retry_after", result.RetryAfter,
	)
	return result, nil
}
