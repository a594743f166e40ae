package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, tokenType string, expiresAt time.Time) string {
	t.Helper()

	claims := Claims{
		UserID: "0d7c3c45-7c0e-4bb4-9f5e-2f1f8c8a9a10",
		Email:  "buyer@example.com",
		Role:   "customer",
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateAccessToken(t *testing.T) {
	m := NewManager("shared-secret")

	token := signToken(t, "shared-secret", "access", time.Now().Add(time.Hour))

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, "customer", claims.Role)
}

func TestValidateAccessTokenRejectsWrongSecret(t *testing.T) {
	m := NewManager("shared-secret")

	token := signToken(t, "some-other-secret", "access", time.Now().Add(time.Hour))

	_, err := m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessTokenRejectsRefreshTokens(t *testing.T) {
	m := NewManager("shared-secret")

	token := signToken(t, "shared-secret", "refresh", time.Now().Add(time.Hour))

	_, err := m.ValidateAccessToken(token)
	assert.ErrorContains(t, err, "token type")
}

func TestValidateAccessTokenRejectsExpired(t *testing.T) {
	m := NewManager("shared-secret")

	token := signToken(t, "shared-secret", "access", time.Now().Add(-time.Minute))

	_, err := m.ValidateAccessToken(token)
	assert.Error(t, err)
}
