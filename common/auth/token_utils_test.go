package auth_test

import (
	"testing"
	"time"

	"checkout-service/common/auth"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestParseAndValidateToken_Valid(t *testing.T) {
	v := auth.NewTokenValidator("secret")
	tok := sign(t, "secret", jwt.MapClaims{"user_id": "u-1", "typ": "access", "exp": time.Now().Add(time.Hour).Unix()})

	claims, err := v.ParseAndValidateToken(tok, auth.TokenTypeAccess)
	require.NoError(t, err)
	id, ok := auth.UserID(claims)
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)
}

func TestParseAndValidateToken_Rejects(t *testing.T) {
	v := auth.NewTokenValidator("secret")
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(t, "other", jwt.MapClaims{"sub": "u", "typ": "access", "exp": future})},
		{"expired", sign(t, "secret", jwt.MapClaims{"sub": "u", "typ": "access", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"refresh token", sign(t, "secret", jwt.MapClaims{"sub": "u", "typ": "refresh", "exp": future})},
		{"garbage", "not.a.jwt"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.ParseAndValidateToken(tc.token, auth.TokenTypeAccess)
			assert.Error(t, err)
		})
	}
}

func TestParseAndValidateToken_NoSecret(t *testing.T) {
	_, err := auth.NewTokenValidator("  ").ParseAndValidateToken("x", "")
	assert.ErrorIs(t, err, auth.ErrSecretNotConfigured)
}

func TestUserID_FallsBackToSubject(t *testing.T) {
	id, ok := auth.UserID(jwt.MapClaims{"sub": "u-2"})
	assert.True(t, ok)
	assert.Equal(t, "u-2", id)

	_, ok = auth.UserID(jwt.MapClaims{})
	assert.False(t, ok)
}
