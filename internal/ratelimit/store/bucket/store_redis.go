package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"condo/internal/ratelimit/models"
)

// RedisBucketStore implements fixed window counting with INCR and EXPIRE so
// every replica shares the same counters.
type RedisBucketStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis constructs a Redis-backed bucket store.
func NewRedis(client *redis.Client) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

// Allow counts one request against key and reports whether it fits the limit.
// The expiry is only set by the request that opens the window.
func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit pipeline: %w", err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	now := s.now()
	return resultFor(int(incr.Val()), limit, now.Add(remaining), now), nil
}
