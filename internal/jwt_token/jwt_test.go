package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
)

var jwtService = NewJWTService("test-signing-key", "test-issuer")
var userID = id.UserID(uuid.New())
var expiresIn = time.Hour

func Test_GenerateAccessToken(t *testing.T) {
	issued, err := jwtService.Generate(userID, TokenTypeAccess, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.JTI)

	claims, err := jwtService.ValidateToken(issued.Token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string", TokenTypeAccess)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Equal(t, "invalid token", dErrors.Message(err))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	issued, err := jwtService.Generate(userID, TokenTypeAccess, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(issued.Token, TokenTypeAccess)
	require.Error(t, err)
	assert.Equal(t, "token has expired", dErrors.Message(err))
	assert.ErrorIs(t, err, sentinel.ErrExpired)
}

func Test_ValidateToken_WrongType(t *testing.T) {
	refresh, err := jwtService.Generate(userID, TokenTypeRefresh, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(refresh.Token, TokenTypeAccess)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = jwtService.AccessTokens().ValidateToken(refresh.Token)
	require.Error(t, err)
}

func Test_ValidateToken_ForeignKeyOrIssuer(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer")
	issued, err := other.Generate(userID, TokenTypeAccess, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(issued.Token, TokenTypeAccess)
	require.Error(t, err)

	otherIssuer := NewJWTService("test-signing-key", "someone-else")
	issued, err = otherIssuer.Generate(userID, TokenTypeAccess, expiresIn)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(issued.Token, TokenTypeAccess)
	require.Error(t, err)
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:    userID.String(),
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(signed, TokenTypeAccess)
	require.Error(t, err)
}

func Test_AccessTokensMapsClaims(t *testing.T) {
	issued, err := jwtService.Generate(userID, TokenTypeAccess, expiresIn)
	require.NoError(t, err)

	claims, err := jwtService.AccessTokens().ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, issued.JTI, claims.JTI)
}

func Test_RemainingTTL(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewJWTService("k", "i", WithClock(func() time.Time { return fixed }))
	issued, err := svc.Generate(userID, TokenTypeRefresh, 24*time.Hour)
	require.NoError(t, err)
	claims, err := svc.ValidateToken(issued.Token, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, svc.RemainingTTL(claims))
}
