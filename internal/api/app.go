// Package api assembles the module graph and exposes it as one HTTP handler.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"condo/internal/access"
	authhandler "condo/internal/auth/handler"
	authmetrics "condo/internal/auth/metrics"
	"condo/internal/auth/password"
	authsvc "condo/internal/auth/service"
	"condo/internal/auth/store/revocation"
	billinghandler "condo/internal/billing/handler"
	billingmetrics "condo/internal/billing/metrics"
	billingsvc "condo/internal/billing/service"
	cataloghandler "condo/internal/catalog/handler"
	catalogsvc "condo/internal/catalog/service"
	gatehandler "condo/internal/gate/handler"
	gatesvc "condo/internal/gate/service"
	jwttoken "condo/internal/jwt_token"
	noticehandler "condo/internal/notice/handler"
	noticesvc "condo/internal/notice/service"
	platformmetrics "condo/internal/platform/metrics"
	propertyhandler "condo/internal/property/handler"
	propertysvc "condo/internal/property/service"
	rlconfig "condo/internal/ratelimit/config"
	rlmetrics "condo/internal/ratelimit/metrics"
	rlmiddleware "condo/internal/ratelimit/middleware"
	"condo/internal/ratelimit/service/requestlimit"
	"condo/internal/ratelimit/store/bucket"
	registrationhandler "condo/internal/registration/handler"
	registrationmetrics "condo/internal/registration/metrics"
	registrationsvc "condo/internal/registration/service"
	residenthandler "condo/internal/residents/handler"
	residentmetrics "condo/internal/residents/metrics"
	residentsvc "condo/internal/residents/service"
	"condo/internal/roles"
	roleshandler "condo/internal/roles/handler"
	auditpublisher "condo/pkg/platform/audit/publisher"
	authmw "condo/pkg/platform/middleware/auth"
)

// Config tunes the application graph.
type Config struct {
	JWTSigningKey      string
	Issuer             string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	BcryptCost         int
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	RateLimitExempt    []netip.Prefix
	RateLimitDisabled  bool
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type settings struct {
	redis    *redis.Client
	registry *prometheus.Registry
	checks   map[string]HealthCheck
}

type Option func(*settings)

// WithRedis keeps token revocations and rate-limit windows in Redis.
func WithRedis(client *redis.Client) Option {
	return func(s *settings) { s.redis = client }
}

// WithRegistry registers every metric on reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *settings) { s.registry = reg }
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *settings) { s.checks[name] = check }
}

// App is the wired application.
type App struct {
	Handler      http.Handler
	Auth         *authsvc.Service
	Registration *registrationsvc.Service
	Residents    *residentsvc.Service
	Units        *propertysvc.Service
	Catalog      *catalogsvc.Service
	Billing      *billingsvc.Service
	Gate         *gatesvc.Service
	Notices      *noticesvc.Service
	Roles        *roles.Registry
}

// New builds every service on backend and mounts their handlers.
func New(ctx context.Context, backend Backend, cfg Config, logger *slog.Logger, opts ...Option) (*App, error) {
	st := &settings{checks: map[string]HealthCheck{}}
	for _, opt := range opts {
		opt(st)
	}
	if st.registry == nil {
		st.registry = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.JWTSigningKey == "" {
		return nil, errors.New("JWT signing key is required")
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	reg := st.registry

	roleRegistry, err := roles.Load(ctx, backend.Roles)
	if err != nil {
		return nil, err
	}
	publisher := auditpublisher.NewPublisher(backend.Audit,
		auditpublisher.WithLogger(logger),
		auditpublisher.WithMetrics(auditpublisher.NewMetrics(reg)),
	)
	policy := access.DefaultPolicy()
	httpMetrics := platformmetrics.New(reg)
	guard := access.NewGuard(policy, logger, httpMetrics)

	catalog, err := catalogsvc.New(backend.Catalog, backend.Tx, catalogsvc.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	units, err := propertysvc.New(backend.Units, backend.Tx,
		propertysvc.WithLogger(logger),
		propertysvc.WithCatalog(catalog),
		propertysvc.WithIdentities(backend.Identities),
		propertysvc.WithAuditPublisher(publisher),
	)
	if err != nil {
		return nil, fmt.Errorf("property service: %w", err)
	}
	residents, err := residentsvc.New(backend.Residents, units, roleRegistry, backend.Tx,
		residentsvc.WithLogger(logger),
		residentsvc.WithIdentityRemover(identityRemover{identities: backend.Identities, units: units}),
		residentsvc.WithAuditPublisher(publisher),
		residentsvc.WithMetrics(residentmetrics.New(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("residents service: %w", err)
	}
	gate, err := gatesvc.New(backend.Gate, residents, policy, backend.Tx, gatesvc.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("gate service: %w", err)
	}
	billing, err := billingsvc.New(backend.Billing, units, catalog, backend.Tx,
		billingsvc.WithLogger(logger),
		billingsvc.WithMetrics(billingmetrics.New(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("billing service: %w", err)
	}
	notices, err := noticesvc.New(backend.Notices, residents, backend.Tx, noticesvc.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("notice service: %w", err)
	}

	// Deletion cascades run through these edges inside the caller's transaction.
	if err := catalog.AddDependents(units, billing); err != nil {
		return nil, err
	}
	if err := units.AddDependents(residents, billing); err != nil {
		return nil, err
	}
	if err := residents.AddDependents(gate); err != nil {
		return nil, err
	}
	if err := residents.AddPersonDependents(notices); err != nil {
		return nil, err
	}

	hasher := password.NewHasher(cfg.BcryptCost)
	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.Issuer)
	var revocations interface {
		authsvc.RevocationList
		authmw.TokenRevocationChecker
	}
	if st.redis != nil {
		revocations = revocation.NewRedisTRL(st.redis, revocation.WithRegisterer(reg))
	} else {
		revocations = revocation.NewInMemoryTRL()
	}

	auth, err := authsvc.New(authsvc.Deps{
		Identities:  backend.Identities,
		Persons:     personDirectory{persons: residents, units: units},
		Hasher:      hasher,
		Tokens:      tokens,
		Revocations: revocations,
		Roles:       roleRegistry,
		Tx:          backend.Tx,
	}, authsvc.Config{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	},
		authsvc.WithLogger(logger),
		authsvc.WithAuditPublisher(publisher),
		authsvc.WithMetrics(authmetrics.New(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	registration, err := registrationsvc.New(backend.Identities, residents, units, hasher, backend.Tx,
		registrationsvc.WithLogger(logger),
		registrationsvc.WithAuditPublisher(publisher),
		registrationsvc.WithMetrics(registrationmetrics.New(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("registration service: %w", err)
	}

	limiter, err := newRateLimiter(cfg, st.redis, reg, logger)
	if err != nil {
		return nil, err
	}

	router := newRouter(routerDeps{
		logger:       logger,
		cors:         cfg.CORSAllowedOrigins,
		gatherer:     reg,
		metrics:      httpMetrics,
		limiter:      limiter,
		authenticate: authmw.Authenticate(tokens.AccessTokens(), revocations, auth, logger),
		checks:       st.checks,
		auth:         authhandler.New(auth, guard, logger),
		registration: registrationhandler.New(registration, logger),
		modules: []module{
			propertyhandler.New(units, guard, logger),
			cataloghandler.New(catalog, guard, logger),
			residenthandler.New(residents, guard, logger),
			gatehandler.New(gate, guard, logger),
			billinghandler.New(billing, guard, logger),
			noticehandler.New(notices, guard, logger),
			roleshandler.New(roleRegistry, guard, logger),
		},
	})

	return &App{
		Handler:      router,
		Auth:         auth,
		Registration: registration,
		Residents:    residents,
		Units:        units,
		Catalog:      catalog,
		Billing:      billing,
		Gate:         gate,
		Notices:      notices,
		Roles:        roleRegistry,
	}, nil
}

// newRateLimiter limits anonymous credential endpoints per client IP. With
// Redis the windows are shared across instances and an in-process limiter
// takes over while Redis is failing.
func newRateLimiter(cfg Config, client *redis.Client, reg prometheus.Registerer, logger *slog.Logger) (*rlmiddleware.Middleware, error) {
	limits := rlconfig.DefaultConfig(cfg.RateLimitPerMinute)
	limits.Exempt = cfg.RateLimitExempt
	m := rlmetrics.New(reg)

	var buckets requestlimit.BucketStore = bucket.New()
	opts := []rlmiddleware.Option{
		rlmiddleware.WithDisabled(cfg.RateLimitDisabled),
		rlmiddleware.WithMetrics(m),
	}
	if client != nil {
		buckets = bucket.NewRedis(client)
		fallback, err := requestlimit.New(bucket.New(),
			requestlimit.WithConfig(limits),
			requestlimit.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("fallback rate limiter: %w", err)
		}
		opts = append(opts, rlmiddleware.WithFallback(fallback))
	}
	requests, err := requestlimit.New(buckets,
		requestlimit.WithConfig(limits),
		requestlimit.WithLogger(logger),
		requestlimit.WithMetrics(m),
	)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return rlmiddleware.New(requests, logger, opts...), nil
}
