package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"condo/internal/ratelimit/metrics"
	"condo/internal/ratelimit/models"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/httputil"
	"condo/pkg/requestcontext"
)

// RateLimiter checks one request from ip against the window of class.
// *requestlimit.Service satisfies it for both the shared and in-process stores.
type RateLimiter interface {
	CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter  RateLimiter
	fallback RateLimiter
	breaker  *breaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithFallback serves checks from fallback while the primary limiter is failing.
func WithFallback(fallback RateLimiter) Option {
	return func(m *Middleware) {
		m.fallback = fallback
	}
}

// WithBreaker sets how many consecutive primary errors open the breaker and
// how long it waits before retrying the primary again.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(m *Middleware) {
		m.breaker = newBreaker(threshold, cooldown)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		breaker: newBreaker(5, 10*time.Second),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests per client IP for the given endpoint class.
// Limiter errors fail open unless a fallback is configured.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, degraded, err := m.check(ctx, ip, class)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check IP rate limit", "error", err, "ip_prefix", models.AnonymizeIP(ip))
				next.ServeHTTP(w, r)
				return
			}

			// Add headers regardless of outcome
			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}

			if !result.Allowed {
				writeThrottled(w, class, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) check(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, bool, error) {
	if m.fallback == nil {
		result, err := m.limiter.CheckIP(ctx, ip, class)
		return result, false, err
	}

	if m.breaker.allowPrimary() {
		result, err := m.limiter.CheckIP(ctx, ip, class)
		if err == nil {
			if m.breaker.success() {
				m.logger.InfoContext(ctx, "rate limiter circuit closed")
			}
			return result, false, nil
		}
		switch {
		case m.breaker.failure():
			m.logger.WarnContext(ctx, "rate limiter circuit opened", "error", err)
		case !m.breaker.isOpen():
			return nil, false, err
		}
	}

	if m.metrics != nil {
		m.metrics.IncrementDegraded()
	}
	result, err := m.fallback.CheckIP(ctx, ip, class)
	return result, true, err
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeThrottled(w http.ResponseWriter, class models.EndpointClass, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ThrottledResponse{
		Error:            string(dErrors.CodeRateLimited),
		ErrorDescription: "too many requests from this address, try again later",
		Class:            class,
		RetryAfter:       result.RetryAfter,
	})
}
