package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"condo/internal/auth/device"
	"condo/internal/auth/models"
	jwttoken "condo/internal/jwt_token"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/audit"
	"condo/pkg/platform/sentinel"
	"condo/pkg/requestcontext"
)

const tokenTypeBearer = "Bearer"

// errInvalidCredentials is the only login failure callers see, whether the
// username is unknown, the account is disabled or the password is wrong.
func errInvalidCredentials() error {
	return dErrors.New(dErrors.CodeInvalidCredentials, "No active account found with the given credentials")
}

// Login verifies credentials and issues an access and refresh token pair.
func (s *Service) Login(ctx context.Context, username, pw string) (*models.TokenPair, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()
	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.ObserveLogin(start)
	}

	username = strings.TrimSpace(username)
	dev := device.ParseUserAgent(requestcontext.UserAgent(ctx))

	identity, err := s.identities.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "identity lookup failed")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
		}
		// Burn a hash comparison so unknown usernames take as long as wrong passwords.
		s.hasher.CompareDummy(pw)
		s.loginFailed(ctx, audit.Event{Subject: username, Device: dev, Reason: "unknown_username"})
		return nil, errInvalidCredentials()
	}

	if err := s.hasher.Compare(identity.PasswordHash, pw); err != nil {
		s.loginFailed(ctx, audit.Event{UserID: identity.ID, Subject: username, Device: dev, Reason: "bad_password"})
		return nil, errInvalidCredentials()
	}
	if !identity.Active {
		s.loginFailed(ctx, audit.Event{UserID: identity.ID, Subject: username, Device: dev, Reason: "inactive"})
		return nil, errInvalidCredentials()
	}

	access, err := s.tokens.Generate(identity.ID, jwttoken.TokenTypeAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	refresh, err := s.tokens.Generate(identity.ID, jwttoken.TokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue refresh token")
	}

	if err := s.identities.TouchLogin(ctx, identity.ID, requestcontext.Now(ctx)); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login",
			"user_id", identity.ID.String(),
			"error", err,
		)
	}

	span.SetAttributes(attribute.String("user_id", identity.ID.String()))
	if s.metrics != nil {
		s.metrics.IncrementLogin("success")
	}
	s.emitBestEffort(ctx, audit.EventLoginSucceeded, audit.Event{
		UserID:  identity.ID,
		Subject: identity.Username,
		Email:   identity.Email,
		Device:  dev,
	})

	return &models.TokenPair{
		Access:    access.Token,
		Refresh:   refresh.Token,
		TokenType: tokenTypeBearer,
		ExpiresIn: int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, event audit.Event) {
	if s.metrics != nil {
		s.metrics.IncrementLogin("invalid_credentials")
	}
	s.logger.InfoContext(ctx, "login failed",
		"reason", event.Reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitBestEffort(ctx, audit.EventLoginFailed, event)
}

// Refresh issues a new access token for a valid, unrevoked refresh token.
// The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.AccessToken, error) {
	ctx, span := tracer.Start(ctx, "auth.Refresh")
	defer span.End()

	claims, identity, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.Generate(identity.ID, jwttoken.TokenTypeAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	if s.metrics != nil {
		s.metrics.TokensRefreshed.Inc()
	}
	s.emitBestEffort(ctx, audit.EventTokenRefreshed, audit.Event{
		UserID:  identity.ID,
		Subject: identity.Username,
		Reason:  "refresh_jti:" + claims.ID,
	})
	return &models.AccessToken{
		Access:    access.Token,
		TokenType: tokenTypeBearer,
		ExpiresIn: int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Logout revokes the refresh token and, when the request was authenticated,
// the access token that made it.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, identity, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if caller, ok := requestcontext.PrincipalFrom(ctx); ok && caller.UserID != identity.ID {
		return dErrors.New(dErrors.CodeUnauthorized, "token does not belong to caller")
	}

	if err := s.revocations.RevokeToken(ctx, claims.ID, s.tokens.RemainingTTL(claims)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke refresh token")
	}
	if jti := requestcontext.TokenID(ctx); jti != "" {
		if err := s.revocations.RevokeToken(ctx, jti, s.cfg.AccessTokenTTL); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke access token")
		}
	}
	if s.metrics != nil {
		s.metrics.Logouts.Inc()
	}
	s.emitBestEffort(ctx, audit.EventLoggedOut, audit.Event{UserID: identity.ID, Subject: identity.Username})
	return nil
}

func (s *Service) verifyRefresh(ctx context.Context, refreshToken string) (*jwttoken.Claims, *models.Identity, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, jwttoken.TokenTypeRefresh)
	if err != nil {
		return nil, nil, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
	}
	if revoked {
		return nil, nil, dErrors.Wrap(sentinel.ErrRevoked, dErrors.CodeUnauthorized, "token has been revoked")
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	identity, err := s.identities.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "user not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if !identity.Active {
		return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "user inactive")
	}
	return claims, identity, nil
}
