package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *JWTService {
	cfg := config.JWTConfig{
		Secret: testJWTSecret,
		Issuer: "recipefy",
	}
	return NewJWTService(cfg)
}

// mintToken signs a token the way the account service would. Tests mutate
// the default claims to produce the failure cases.
func mintToken(t *testing.T, secret string, mutate func(*Claims)) string {
	t.Helper()

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    "recipefy",
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:    uuid.New().String(),
		Email:     "cook@example.com",
		TokenType: TokenTypeAccess,
	}
	if mutate != nil {
		mutate(claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewJWTService(t *testing.T) {
	cfg := config.JWTConfig{
		Secret: testJWTSecret,
		Issuer: "recipefy",
	}

	svc := NewJWTService(cfg)

	assert.NotNil(t, svc)
	assert.Equal(t, []byte(cfg.Secret), svc.secret)
	assert.Equal(t, cfg.Issuer, svc.issuer)
}

func TestValidateAccessToken_Success(t *testing.T) {
	svc := newTestJWTService()
	ownerID := uuid.New()
	token := mintToken(t, testJWTSecret, func(c *Claims) {
		c.UserID = ownerID.String()
	})

	claims, err := svc.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, ownerID.String(), claims.UserID)
	assert.Equal(t, "cook@example.com", claims.Email)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	parsed, err := claims.OwnerUUID()
	require.NoError(t, err)
	assert.Equal(t, ownerID, parsed)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	svc := newTestJWTService()
	token := mintToken(t, "a-completely-different-signing-key", nil)

	claims, err := svc.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestValidateAccessToken_Malformed(t *testing.T) {
	svc := newTestJWTService()

	claims, err := svc.ValidateAccessToken("not.a.token")

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := newTestJWTService()
	token := mintToken(t, testJWTSecret, func(c *Claims) {
		c.IssuedAt = jwt.NewNumericDate(time.Now().Add(-1 * time.Hour))
		c.NotBefore = jwt.NewNumericDate(time.Now().Add(-1 * time.Hour))
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-30 * time.Minute))
	})

	claims, err := svc.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestValidateAccessToken_NotYetValid(t *testing.T) {
	svc := newTestJWTService()
	token := mintToken(t, testJWTSecret, func(c *Claims) {
		c.NotBefore = jwt.NewNumericDate(time.Now().Add(1 * time.Hour))
	})

	claims, err := svc.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrTokenNotYetValid)
	assert.Nil(t, claims)
}

func TestValidateAccessToken_WrongIssuer(t *testing.T) {
	svc := newTestJWTService()
	token := mintToken(t, testJWTSecret, func(c *Claims) {
		c.Issuer = "someone-else"
	})

	claims, err := svc.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidIssuer)
	assert.Nil(t, claims)
}

func TestValidateAccessToken_RefreshTokenRejected(t *testing.T) {
	svc := newTestJWTService()
	token := mintToken(t, testJWTSecret, func(c *Claims) {
		c.TokenType = TokenTypeRefresh
	})

	claims, err := svc.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidTokenType)
	assert.Nil(t, claims)
}

func TestValidateAccessToken_MissingUserID(t *testing.T) {
	svc := newTestJWTService()
	token := mintToken(t, testJWTSecret, func(c *Claims) {
		c.UserID = ""
	})

	claims, err := svc.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrMissingUserID)
	assert.Nil(t, claims)
}

func TestValidateAccessToken_RejectsUnsignedToken(t *testing.T) {
	svc := newTestJWTService()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "recipefy",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
		UserID:    uuid.New().String(),
		TokenType: TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	result, err := svc.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, result)
}

func TestClaims_OwnerUUID_Malformed(t *testing.T) {
	claims := &Claims{UserID: "not-a-uuid"}

	_, err := claims.OwnerUUID()

	assert.Error(t, err)
}

func TestClaims_IsAdmin(t *testing.T) {
	svc := newTestJWTService()

	token := mintToken(t, testJWTSecret, func(c *Claims) {
		c.Role = RoleAdmin
	})
	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())

	// Tokens without the role claim stay regular users
	plain := mintToken(t, testJWTSecret, nil)
	claims, err = svc.ValidateAccessToken(plain)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin())
}
