package bucket

import (
	"context"
	"sync"
	"time"

	"condo/internal/ratelimit/models"
)

// InMemoryBucketStore implements fixed window counting in process memory.
// Counters are not shared between replicas; use RedisBucketStore for that.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*fixedWindow
	now     func() time.Time
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

// New creates a new in-memory bucket store.
func New() *InMemoryBucketStore {
	return &InMemoryBucketStore{
		buckets: make(map[string]*fixedWindow),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *InMemoryBucketStore) WithClock(now func() time.Time) *InMemoryBucketStore {
	s.now = now
	return s
}

// Allow counts one request against key and reports whether it fits the limit.
func (s *InMemoryBucketStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	fw := s.buckets[key]
	if fw == nil || !now.Before(fw.resetAt) {
		fw = &fixedWindow{resetAt: now.Add(window)}
		s.buckets[key] = fw
	}
	fw.count++
	s.sweep(now)

	return resultFor(fw.count, limit, fw.resetAt, now), nil
}

// sweep drops expired windows once the map grows. Must hold s.mu.
func (s *InMemoryBucketStore) sweep(now time.Time) {
	if len(s.buckets) < sweepThreshold {
		return
	}
	for key, fw := range s.buckets {
		if !now.Before(fw.resetAt) {
			delete(s.buckets, key)
		}
	}
}

const sweepThreshold = 10_000

// resultFor turns a window counter into a result. Shared with the Redis store.
func resultFor(count, limit int, resetAt, now time.Time) *models.RateLimitResult {
	result := &models.RateLimitResult{
		Allowed: count <= limit,
		Limit:   limit,
		ResetAt: resetAt,
	}
	if result.Allowed {
		result.Remaining = limit - count
		return result
	}
	retry := int(resetAt.Sub(now).Round(time.Second) / time.Second)
	if retry < 1 {
		retry = 1
	}
	result.RetryAfter = retry
	return result
}
