package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recipefy/backend/internal/infrastructure/auth"
	"github.com/recipefy/backend/internal/infrastructure/config"
)

func newTestVerifier(t *testing.T, name, rawKey string, scopes []string) *auth.ServiceKeyVerifier {
	t.Helper()
	hash, err := auth.HashServiceKey(rawKey)
	require.NoError(t, err)
	return auth.NewServiceKeyVerifier(config.ServiceAuthConfig{
		Enabled: true,
		Keys: []config.ServiceKeyConfig{
			{Name: name, KeyHash: hash, Scopes: scopes},
		},
	})
}

func TestServiceAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	verifier := newTestVerifier(t, "recipe-service", "test-key-123", []string{auth.ScopeUsageConsume})

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(ServiceAuthMiddleware(ServiceAuthConfig{
			Verifier: verifier,
			Logger:   zap.NewNop(),
		}))
		router.GET("/test", func(c *gin.Context) {
			identity := GetServiceIdentity(c)
			if identity == nil {
				c.String(http.StatusOK, "anonymous")
				return
			}
			c.String(http.StatusOK, identity.Name)
		})
		return router
	}

	t.Run("passes through without header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("resolves identity for valid key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(APIKeyHeader, "test-key-123")
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "recipe-service", w.Body.String())
	})

	t.Run("rejects unknown key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(APIKeyHeader, "wrong-key")
		w := httptest.NewRecorder()
		newRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_SERVICE_KEY")
	})
}

func TestRequireServiceScope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	verifier := newTestVerifier(t, "recipe-service", "consume-key", []string{auth.ScopeUsageConsume})

	newRouter := func(scope string) *gin.Engine {
		router := gin.New()
		router.Use(ServiceAuthMiddleware(ServiceAuthConfig{Verifier: verifier, Logger: zap.NewNop()}))
		router.POST("/internal", RequireServiceScope(scope), func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("allows key holding the scope", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/internal", nil)
		req.Header.Set(APIKeyHeader, "consume-key")
		w := httptest.NewRecorder()
		newRouter(auth.ScopeUsageConsume).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects key lacking the scope", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/internal", nil)
		req.Header.Set(APIKeyHeader, "consume-key")
		w := httptest.NewRecorder()
		newRouter(auth.ScopeUsageIngest).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "INSUFFICIENT_SCOPE")
	})

	t.Run("rejects request without service key", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/internal", nil)
		w := httptest.NewRecorder()
		newRouter(auth.ScopeUsageConsume).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "SERVICE_KEY_REQUIRED")
	})
}

func TestCallerName(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("service identity wins", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		verifier := newTestVerifier(t, "menu-service", "menu-key", nil)
		identity, err := verifier.Verify("menu-key")
		require.NoError(t, err)
		c.Set(ServiceIdentityKey, identity)

		assert.Equal(t, "menu-service", CallerName(c))
	})

	t.Run("jwt subject maps to user", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(JWTUserIDKey, "owner-123")

		assert.Equal(t, "user", CallerName(c))
	})

	t.Run("unauthenticated maps to anonymous", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		assert.Equal(t, "anonymous", CallerName(c))
	})
}
