// Package requestcontext carries request-scoped values from middleware to
// services without importing net/http: the caller, its token, where it
// connects from, the request ID and the pinned request time.
//
// Services read, middleware writes, tests inject:
//
//	principal, ok := requestcontext.PrincipalFrom(ctx)
//	ctx = requestcontext.WithPrincipal(ctx, principal)
//	ctx = requestcontext.WithTime(ctx, fixed)
package requestcontext

import (
	"context"
	"slices"
	"time"

	id "condo/pkg/domain"
)

// key is a typed context key; the zero value of T is returned when unset.
type key[T any] struct{ name string }

func (k key[T]) get(ctx context.Context) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

func (k key[T]) set(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, k, v)
}

var (
	principalKey = key[Principal]{"principal"}
	tokenIDKey   = key[string]{"token_id"}
	clientIPKey  = key[string]{"client_ip"}
	userAgentKey = key[string]{"user_agent"}
	requestIDKey = key[string]{"request_id"}
	nowKey       = key[time.Time]{"request_time"}
)

// Principal is the authenticated caller as resolved from a bearer token.
// PersonID is nil for identities without a resident profile, such as a
// bootstrap administrator.
type Principal struct {
	UserID   id.UserID
	PersonID *id.PersonID
	Username string
	Roles    []id.RoleName
}

func (p Principal) HasRole(role id.RoleName) bool {
	return slices.Contains(p.Roles, role)
}

func (p Principal) IsAdmin() bool { return p.HasRole(id.RoleAdmin) }

// PrincipalFrom returns the caller; ok is false for anonymous requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) { return principalKey.get(ctx) }

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return principalKey.set(ctx, p)
}

// UserID is the caller's identity, or the nil UUID for anonymous requests.
func UserID(ctx context.Context) id.UserID {
	p, _ := PrincipalFrom(ctx)
	return p.UserID
}

// TokenID is the jti of the access token that authenticated the request.
func TokenID(ctx context.Context) string {
	jti, _ := tokenIDKey.get(ctx)
	return jti
}

func WithTokenID(ctx context.Context, jti string) context.Context {
	return tokenIDKey.set(ctx, jti)
}

func ClientIP(ctx context.Context) string {
	ip, _ := clientIPKey.get(ctx)
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := userAgentKey.get(ctx)
	return ua
}

// WithClientMetadata records where the request came from.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return userAgentKey.set(clientIPKey.set(ctx, clientIP), userAgent)
}

func RequestID(ctx context.Context) string {
	rid, _ := requestIDKey.get(ctx)
	return rid
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return requestIDKey.set(ctx, requestID)
}

// Now is the pinned request time, or the wall clock outside a request
// (workers, the sweep, CLI commands).
func Now(ctx context.Context) time.Time {
	if t, ok := nowKey.get(ctx); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the time returned by Now.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return nowKey.set(ctx, t)
}
