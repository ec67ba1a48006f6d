// Package service implements login, token refresh, logout and identity
// administration.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"condo/internal/auth/metrics"
	"condo/internal/auth/models"
	jwttoken "condo/internal/jwt_token"
	id "condo/pkg/domain"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/tx"
)

var tracer = otel.Tracer("condo/internal/auth")

type IdentityStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.Identity, error)
	FindByUsername(ctx context.Context, username string) (*models.Identity, error)
	List(ctx context.Context) ([]*models.Identity, error)
	SetRoles(ctx context.Context, userID id.UserID, roles []id.RoleName) error
	SetActive(ctx context.Context, userID id.UserID, active bool) error
	TouchLogin(ctx context.Context, userID id.UserID, at time.Time) error
	Delete(ctx context.Context, userID id.UserID) error
}

// PersonDirectory reads and unlinks the person profile of an identity.
// FindByIdentity returns sentinel.ErrNotFound for identities without one.
type PersonDirectory interface {
	FindByIdentity(ctx context.Context, userID id.UserID) (*models.PersonSummary, error)
	UnlinkIdentity(ctx context.Context, userID id.UserID) error
}

type PasswordHasher interface {
	Compare(hash []byte, pw string) error
	CompareDummy(pw string)
}

type TokenService interface {
	Generate(userID id.UserID, tokenType jwttoken.TokenType, expiresIn time.Duration) (*jwttoken.Issued, error)
	ValidateToken(token string, wantType jwttoken.TokenType) (*jwttoken.Claims, error)
	RemainingTTL(claims *jwttoken.Claims) time.Duration
}

type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RoleCatalog tells which group names exist.
type RoleCatalog interface {
	Exists(name id.RoleName) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config carries token lifetimes.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Service orchestrates authentication and identity administration.
type Service struct {
	identities     IdentityStore
	persons        PersonDirectory
	hasher         PasswordHasher
	tokens         TokenService
	revocations    RevocationList
	roles          RoleCatalog
	tx             tx.Runner
	cfg            Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Deps groups the collaborators the service cannot run without.
type Deps struct {
	Identities  IdentityStore
	Persons     PersonDirectory
	Hasher      PasswordHasher
	Tokens      TokenService
	Revocations RevocationList
	Roles       RoleCatalog
	Tx          tx.Runner
}

func New(deps Deps, cfg Config, opts ...Option) (*Service, error) {
	switch {
	case deps.Identities == nil:
		return nil, errors.New("identity store is required")
	case deps.Persons == nil:
		return nil, errors.New("person directory is required")
	case deps.Hasher == nil:
		return nil, errors.New("password hasher is required")
	case deps.Tokens == nil:
		return nil, errors.New("token service is required")
	case deps.Revocations == nil:
		return nil, errors.New("revocation list is required")
	case deps.Roles == nil:
		return nil, errors.New("role catalog is required")
	case deps.Tx == nil:
		return nil, errors.New("transaction runner is required")
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 30 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 24 * time.Hour
	}
	s := &Service{
		identities:  deps.Identities,
		persons:     deps.Persons,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		revocations: deps.Revocations,
		roles:       deps.Roles,
		tx:          deps.Tx,
		cfg:         cfg,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// emit records an audit event. Callers inside a transaction must fail when it
// does; security events outside one only log the failure.
func (s *Service) emit(ctx context.Context, event audit.AuditEvent, base audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	base.Action = string(event)
	return s.auditPublisher.Emit(ctx, base)
}

func (s *Service) emitBestEffort(ctx context.Context, event audit.AuditEvent, base audit.Event) {
	if err := s.emit(ctx, event, base); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event",
			"event", string(event),
			"error", err,
		)
	}
}
