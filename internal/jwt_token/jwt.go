package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	authmw "condo/pkg/platform/middleware/auth"
	"condo/pkg/platform/sentinel"
)

// TokenType distinguishes access from refresh tokens signed with the same key.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents the JWT claims for access and refresh tokens
type Claims struct {
	UserID    string    `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

type Option func(*JWTService)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewJWTService(signingKey string, issuer string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issued is a signed token together with the claims it carries.
type Issued struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Generate signs a token of the given type for userID.
func (s *JWTService) Generate(userID id.UserID, tokenType TokenType, expiresIn time.Duration) (*Issued, error) {
	now := s.now()
	jti := uuid.NewString()
	expiresAt := now.Add(expiresIn)
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    userID.String(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return nil, err
	}
	return &Issued{Token: signedToken, JTI: jti, ExpiresAt: expiresAt}, nil
}

// Parse verifies the signature, issuer and expiry of tokenString.
func (s *JWTService) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.Wrap(sentinel.ErrExpired, dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.ID == "" || claims.UserID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ValidateToken parses tokenString and requires it to be of wantType, so a
// refresh token cannot be presented as a bearer token and vice versa.
func (s *JWTService) ValidateToken(tokenString string, wantType TokenType) (*Claims, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != wantType {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "wrong token type")
	}
	return claims, nil
}

// RemainingTTL is how long claims stay valid from now. Used to expire
// revocation entries together with the token.
func (s *JWTService) RemainingTTL(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl < 0 {
		return 0
	}
	return ttl
}

// AccessTokens validates bearer tokens for the auth middleware. Refresh
// tokens are rejected so they cannot be presented as credentials.
func (s *JWTService) AccessTokens() authmw.JWTValidator {
	return authmw.ValidatorFunc(func(token string) (*authmw.JWTClaims, error) {
		claims, err := s.ValidateToken(token, TokenTypeAccess)
		if err != nil {
			return nil, err
		}
		return &authmw.JWTClaims{UserID: claims.UserID, JTI: claims.ID}, nil
	})
}
