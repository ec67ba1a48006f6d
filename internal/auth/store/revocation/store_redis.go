package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "trl:jti:"

func revocationKey(jti string) string { return keyPrefix + jti }

// RedisTRL is a Redis-backed token revocation list shared by every API
// replica. Entries expire together with the token they revoke.
type RedisTRL struct {
	client  *redis.Client
	lookups *prometheus.HistogramVec
}

type RedisTRLOption func(*RedisTRL)

// WithRegisterer records revocation lookup latency, split by outcome, on reg.
func WithRegisterer(reg prometheus.Registerer) RedisTRLOption {
	return func(t *RedisTRL) {
		t.lookups = promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "condo_token_revocation_lookup_seconds",
			Help:    "Latency of token revocation lookups",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}, []string{"outcome"})
	}
}

func NewRedisTRL(client *redis.Client, opts ...RedisTRLOption) *RedisTRL {
	t := &RedisTRL{client: client}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RevokeToken stores jti until ttl elapses. Tokens without an ID or already
// expired are ignored.
func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	ttl, ok := entryTTL(jti, ttl)
	if !ok {
		return nil
	}
	if err := t.client.Set(ctx, revocationKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is on the list.
func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	start := time.Now()
	n, err := t.client.Exists(ctx, revocationKey(jti)).Result()
	t.observe(start, n, err)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}

func (t *RedisTRL) observe(start time.Time, n int64, err error) {
	if t.lookups == nil {
		return
	}
	outcome := "active"
	switch {
	case err != nil:
		outcome = "error"
	case n > 0:
		outcome = "revoked"
	}
	t.lookups.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// IsTokenRevoked satisfies the auth middleware's revocation checker.
func (t *RedisTRL) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return t.IsRevoked(ctx, jti)
}
