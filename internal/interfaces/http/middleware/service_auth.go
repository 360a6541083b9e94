package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recipefy/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// Service auth context keys
const (
	ServiceIdentityKey = "service_identity"
	APIKeyHeader       = "X-API-Key"
)

// ServiceAuthConfig holds configuration for service key middleware
type ServiceAuthConfig struct {
	// Verifier checks presented keys against the configured key set
	Verifier *auth.ServiceKeyVerifier
	// Logger for middleware logging
	Logger *zap.Logger
}

// ServiceAuthMiddleware authenticates collaborator backends by API key.
// A missing header is not an error here; routes that accept either a
// service key or a user JWT run this first and fall through to JWT auth.
func ServiceAuthMiddleware(cfg ServiceAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader(APIKeyHeader)
		if rawKey == "" {
			c.Next()
			return
		}

		identity, err := cfg.Verifier.Verify(rawKey)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Service key verification failed",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_SERVICE_KEY",
					"message": "Service key is not recognized",
				},
			})
			return
		}

		c.Set(ServiceIdentityKey, identity)

		if cfg.Logger != nil {
			cfg.Logger.Debug("Service key authentication successful",
				zap.String("service", identity.Name),
			)
		}

		c.Next()
	}
}

// RequireServiceScope restricts a route to service callers holding the given
// scope. It must run after ServiceAuthMiddleware.
func RequireServiceScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetServiceIdentity(c)
		if identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SERVICE_KEY_REQUIRED",
					"message": "This endpoint requires a service key",
				},
			})
			return
		}

		if !identity.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INSUFFICIENT_SCOPE",
					"message": "Service key lacks the required scope",
				},
			})
			return
		}

		c.Next()
	}
}

// GetServiceIdentity retrieves the authenticated service identity, or nil
// when the request was not service-key authenticated
func GetServiceIdentity(c *gin.Context) *auth.ServiceIdentity {
	if v, exists := c.Get(ServiceIdentityKey); exists {
		if identity, ok := v.(*auth.ServiceIdentity); ok {
			return identity
		}
	}
	return nil
}

// CallerName labels the authenticated principal class for metrics: the
// collaborator service name, "user" for JWT traffic, "anonymous" otherwise.
func CallerName(c *gin.Context) string {
	if identity := GetServiceIdentity(c); identity != nil {
		return identity.Name
	}
	if GetJWTUserID(c) != "" {
		return "user"
	}
	return "anonymous"
}
