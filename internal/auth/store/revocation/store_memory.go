package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL is a process-local revocation list for single-instance and
// test deployments.
type InMemoryTRL struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewInMemoryTRL() *InMemoryTRL {
	return &InMemoryTRL{revoked: make(map[string]time.Time), now: time.Now}
}

// WithClock overrides the time source. Used by tests.
func (t *InMemoryTRL) WithClock(now func() time.Time) *InMemoryTRL {
	t.now = now
	return t
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	ttl, ok := entryTTL(jti, ttl)
	if !ok {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = t.now().Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	expiresAt, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	if !t.now().Before(expiresAt) {
		delete(t.revoked, jti)
		return false, nil
	}
	return true, nil
}

func (t *InMemoryTRL) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return t.IsRevoked(ctx, jti)
}
