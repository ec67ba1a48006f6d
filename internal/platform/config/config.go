package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "condo/pkg/platform/strings"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Config captures process level configuration.
type Config struct {
	Addr               string
	Environment        string
	LogLevel           string
	DatabaseURL        string
	Redis              RedisConfig
	Kafka              KafkaConfig
	Auth               AuthConfig
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	// RateLimitExempt lists networks never throttled, such as the gatehouse
	// terminal subnet.
	RateLimitExempt []netip.Prefix
	TxTimeout       time.Duration
	ShutdownTimeout time.Duration
	// OverdueSchedule is the cron expression of the overdue fee sweep;
	// "off" disables it.
	OverdueSchedule string
}

// RedisConfig configures the optional Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit relay. No brokers disables the relay.
type KafkaConfig struct {
	Brokers       []string
	AuditTopic    string
	RelayInterval time.Duration
}

type AuthConfig struct {
	JWTSigningKey   string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

func (c Config) IsProduction() bool { return c.Environment == "production" }

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:               getenv("CONDO_ADDR", ":8080"),
		Environment:        getenv("ENVIRONMENT", "development"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		CORSAllowedOrigins: pkgstrings.SplitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		OverdueSchedule:    getenv("OVERDUE_SWEEP_SCHEDULE", "5 0 * * *"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    pkgstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getenv("AUDIT_TOPIC", "condo.audit"),
		},
		Auth: AuthConfig{
			JWTSigningKey: getenv("JWT_SIGNING_KEY", devSigningKey),
			Issuer:        getenv("JWT_ISSUER", "condo"),
		},
	}

	var err error
	if cfg.Auth.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Auth.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Kafka.RelayInterval, err = durationEnv("AUDIT_RELAY_INTERVAL", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TxTimeout, err = durationEnv("TX_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE", 20); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitExempt, err = prefixesEnv("RATE_LIMIT_EXEMPT"); err != nil {
		return Config{}, err
	}

	if cfg.IsProduction() && cfg.Auth.JWTSigningKey == devSigningKey {
		return Config{}, fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= 0 {
		return Config{}, fmt.Errorf("token TTLs must be positive")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// prefixesEnv parses a comma-separated list of CIDRs. A bare address is taken
// as a single-host prefix.
func prefixesEnv(key string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range pkgstrings.SplitList(os.Getenv(key)) {
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s entry %q: %w", key, raw, err)
			}
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, raw, err)
		}
		out = append(out, prefix.Masked())
	}
	return out, nil
}
