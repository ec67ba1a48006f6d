// Package auth resolves the caller of a request from its bearer token.
// Authentication is optional at this layer: anonymous requests pass through
// without a principal and the access policy decides whether that is enough.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/httputil"
	request "condo/pkg/platform/middleware/request"
	"condo/pkg/platform/sentinel"
	"condo/pkg/requestcontext"
)

// JWTValidator checks the signature, expiry and type of an access token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// ValidatorFunc adapts a function to JWTValidator.
type ValidatorFunc func(tokenString string) (*JWTClaims, error)

func (f ValidatorFunc) ValidateToken(tokenString string) (*JWTClaims, error) {
	return f(tokenString)
}

type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// PrincipalResolver loads the current roles and profile of a token subject.
// Roles are resolved per request so group changes take effect immediately.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID string) (requestcontext.Principal, error)
}

// JWTClaims is what the middleware needs from a validated token.
type JWTClaims struct {
	UserID string
	JTI    string
}

var (
	errMalformedHeader = dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header")
	errInvalidToken    = dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token")
	errRevokedToken    = dErrors.Wrap(sentinel.ErrRevoked, dErrors.CodeUnauthorized, "Token has been revoked")
)

type authenticator struct {
	tokens      JWTValidator
	revocations TokenRevocationChecker
	principals  PrincipalResolver
}

// Authenticate attaches the principal of a valid bearer token to the request
// context. Requests without an Authorization header continue anonymously.
// Malformed, expired or revoked tokens, and tokens whose subject is gone,
// get 401 with a Bearer challenge.
func Authenticate(tokens JWTValidator, revocations TokenRevocationChecker, principals PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	a := &authenticator{tokens: tokens, revocations: revocations, principals: principals}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			principal, jti, err := a.authenticate(ctx, header)
			if err != nil {
				attrs := []any{"error", err, "request_id", request.GetRequestID(ctx)}
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					attrs = append(attrs, "reason", rejectionReason(err))
					logger.WarnContext(ctx, "bearer token rejected", attrs...)
					w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				} else {
					logger.ErrorContext(ctx, "bearer token check failed", attrs...)
				}
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithPrincipal(ctx, principal)
			ctx = requestcontext.WithTokenID(ctx, jti)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rejectionReason classifies an unauthorized error for the rejection log.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrRevoked):
		return "revoked"
	case errors.Is(err, sentinel.ErrExpired):
		return "expired"
	default:
		return "invalid"
	}
}

func (a *authenticator) authenticate(ctx context.Context, header string) (requestcontext.Principal, string, error) {
	var none requestcontext.Principal

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return none, "", errMalformedHeader
	}

	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return none, "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "Invalid or expired token")
	}

	if a.revocations != nil {
		if claims.JTI == "" {
			return none, "", errInvalidToken
		}
		revoked, err := a.revocations.IsTokenRevoked(ctx, claims.JTI)
		if err != nil {
			return none, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check token revocation")
		}
		if revoked {
			return none, "", errRevokedToken
		}
	}

	principal, err := a.principals.ResolvePrincipal(ctx, claims.UserID)
	switch {
	case err == nil:
		return principal, claims.JTI, nil
	case dErrors.HasCode(err, dErrors.CodeUnauthorized), dErrors.HasCode(err, dErrors.CodeNotFound):
		return none, "", errInvalidToken
	default:
		return none, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve principal")
	}
}
