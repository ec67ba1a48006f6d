package requestlimit

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condo/internal/ratelimit/config"
	"condo/internal/ratelimit/metrics"
	"condo/internal/ratelimit/models"
	"condo/internal/ratelimit/store/bucket"
)

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	assert.EqualError(t, err, "buckets store is required")
}

func TestCheckIP(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	svc, err := New(bucket.New(), WithConfig(config.DefaultConfig(4)), WithMetrics(m))
	require.NoError(t, err)

	for range 2 {
		result, err := svc.CheckIP(ctx, "198.51.100.4", models.ClassRegister)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
	result, err := svc.CheckIP(ctx, "198.51.100.4", models.ClassRegister)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 2, result.Limit)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitRejections.WithLabelValues("register")))
}

func TestCheckIPDeniesUnknownClass(t *testing.T) {
	svc, err := New(bucket.New())
	require.NoError(t, err)

	result, err := svc.CheckIP(context.Background(), "198.51.100.4", models.EndpointClass("admin"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 60, result.RetryAfter)
}

func TestCheckIPWrapsStoreErrors(t *testing.T) {
	svc, err := New(brokenStore{})
	require.NoError(t, err)

	_, err = svc.CheckIP(context.Background(), "198.51.100.4", models.ClassLogin)
	assert.Error(t, err)
}

type brokenStore struct{}

func (brokenStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, assert.AnError
}

func TestCheckIPSkipsExemptNetworks(t *testing.T) {
	cfg := config.DefaultConfig(2)
	cfg.Exempt = []netip.Prefix{netip.MustParsePrefix("10.20.0.0/16")}
	svc, err := New(bucket.New(), WithConfig(cfg))
	require.NoError(t, err)

	for range 5 {
		result, err := svc.CheckIP(context.Background(), "10.20.1.9", models.ClassRegister)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 1, result.Remaining)
	}

	result, err := svc.CheckIP(context.Background(), "10.21.1.9", models.ClassRegister)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Remaining)
}
