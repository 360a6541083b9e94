package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipefy/backend/internal/infrastructure/auth"
	"github.com/recipefy/backend/internal/infrastructure/config"
)

const testJWTSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret: testJWTSecret,
		Issuer: "recipefy",
	})
}

// signTestToken signs a token the way the account service would
func signTestToken(t *testing.T, mutate func(*auth.Claims)) string {
	t.Helper()

	now := time.Now()
	claims := &auth.Claims{
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
		TokenType: auth.TokenTypeAccess,
	}
	if mutate != nil {
		mutate(claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func TestJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtService := newTestJWTService()

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(JWTAuthMiddleware(jwtService))
		router.GET("/api/v1/usage/status", func(c *gin.Context) {
			c.String(http.StatusOK, GetJWTUserID(c))
		})
		router.GET("/api/v1/health", func(c *gin.Context) {
			c.String(http.StatusOK, "healthy")
		})
		router.POST("/api/v1/webhooks/stripe", func(c *gin.Context) {
			c.String(http.StatusOK, "webhook")
		})
		return router
	}

	t.Run("accepts valid token and exposes claims", func(t *testing.T) {
		ownerID := uuid.New().String()
		token := signTestToken(t, func(c *auth.Claims) { c.UserID = ownerID })

		req := httptest.NewRequest("GET", "/api/v1/usage/status", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, ownerID, w.Body.String())
	})

	t.Run("rejects missing header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/usage/status", nil)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
	})

	t.Run("rejects non-bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/usage/status", nil)
		req.Header.Set(AuthHeaderKey, "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token := signTestToken(t, func(c *auth.Claims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		})

		req := httptest.NewRequest("GET", "/api/v1/usage/status", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("rejects refresh token", func(t *testing.T) {
		token := signTestToken(t, func(c *auth.Claims) { c.TokenType = auth.TokenTypeRefresh })

		req := httptest.NewRequest("GET", "/api/v1/usage/status", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_TOKEN_TYPE")
	})

	t.Run("skips health path", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("skips webhook prefix", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/webhooks/stripe", nil)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("passes through service-key authenticated requests", func(t *testing.T) {
		verifier := newTestVerifier(t, "recipe-service", "svc-key", []string{auth.ScopeUsageConsume})

		router := gin.New()
		router.Use(ServiceAuthMiddleware(ServiceAuthConfig{Verifier: verifier}))
		router.Use(JWTAuthMiddleware(jwtService))
		router.GET("/api/v1/internal/usage/consume", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/api/v1/internal/usage/consume", nil)
		req.Header.Set(APIKeyHeader, "svc-key")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("custom error handler overrides response", func(t *testing.T) {
		cfg := DefaultJWTConfig(jwtService)
		cfg.OnError = func(c *gin.Context, err error) {
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"custom": true})
		}

		router := gin.New()
		router.Use(JWTAuthMiddlewareWithConfig(cfg))
		router.GET("/api/v1/usage/status", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/api/v1/usage/status", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTeapot, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtService := newTestJWTService()

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(JWTAuthMiddleware(jwtService))
		router.GET("/api/v1/admin/usage/summary", RequireAdmin(), func(c *gin.Context) {
			c.String(http.StatusOK, "summary")
		})
		return router
	}

	t.Run("allows admin token", func(t *testing.T) {
		token := signTestToken(t, func(c *auth.Claims) { c.Role = auth.RoleAdmin })

		req := httptest.NewRequest("GET", "/api/v1/admin/usage/summary", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects non-admin token", func(t *testing.T) {
		token := signTestToken(t, nil)

		req := httptest.NewRequest("GET", "/api/v1/admin/usage/summary", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "FORBIDDEN")
	})

	t.Run("rejects unauthenticated request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/admin/usage/summary", nil)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GetJWTRole exposes the role claim", func(t *testing.T) {
		token := signTestToken(t, func(c *auth.Claims) { c.Role = auth.RoleAdmin })

		router := gin.New()
		router.Use(JWTAuthMiddleware(jwtService))
		router.GET("/api/v1/usage/status", func(c *gin.Context) {
			c.String(http.StatusOK, GetJWTRole(c))
		})

		req := httptest.NewRequest("GET", "/api/v1/usage/status", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "admin", w.Body.String())
	})
}
