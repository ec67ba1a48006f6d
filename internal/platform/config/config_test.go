package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("REFRESH_TOKEN_TTL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("OVERDUE_SWEEP_SCHEDULE", "")
	t.Setenv("SHUTDOWN_TIMEOUT", "")
	t.Setenv("RATE_LIMIT_EXEMPT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 20, cfg.RateLimitPerMinute)
	assert.Equal(t, "5 0 * * *", cfg.OverdueSchedule)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.RateLimitExempt)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CONDO_ADDR", ":9090")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://condo.example")
	t.Setenv("OVERDUE_SWEEP_SCHEDULE", "off")
	t.Setenv("RATE_LIMIT_EXEMPT", "10.20.0.7/16, 192.0.2.1")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"https://condo.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "off", cfg.OverdueSchedule)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.20.0.0/16"),
		netip.MustParsePrefix("192.0.2.1/32"),
	}, cfg.RateLimitExempt)
}

func TestFromEnv_Rejects(t *testing.T) {
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_TTL", "thirty")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("malformed exempt network", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_EXEMPT", "10.0.0.0/99")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("default signing key in production", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("JWT_SIGNING_KEY", "")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
