package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shipping-updates/storefront/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func newManager(issuer, admin string) *JWTManager {
	cfg := &config.Config{}
	cfg.Auth = config.AuthConfig{TokenSecret: secret, Issuer: issuer, AdminEmail: admin}
	return NewJWTManager(cfg)
}

func TestValidateToken(t *testing.T) {
	m := newManager("https://id.shippingupdates.in", "")

	token, err := m.GenerateToken("user_1", Claims{Email: "a@example.com", Name: "Asha", Phone: "9000000001"}, time.Hour)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "9000000001", claims.Phone)
	assert.False(t, m.IsAdmin(claims))
}

func TestValidateTokenRejects(t *testing.T) {
	m := newManager("https://id.shippingupdates.in", "")

	expired, err := m.GenerateToken("user_1", Claims{}, -time.Minute)
	require.NoError(t, err)
	_, err = m.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := newManager("https://elsewhere", "")
	foreign, err := other.GenerateToken("user_1", Claims{}, time.Hour)
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIsAdmin(t *testing.T) {
	m := newManager("", "Owner@ShippingUpdates.in")

	assert.True(t, m.IsAdmin(&Claims{Role: RoleAdmin}))
	assert.True(t, m.IsAdmin(&Claims{Email: "owner@shippingupdates.in"}))
	assert.False(t, m.IsAdmin(&Claims{Email: "cadet@example.com", Role: "user"}))
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader(""))
}
