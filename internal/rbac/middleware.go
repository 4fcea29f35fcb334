package rbac

import (
	"net/http"

	"dialer-platform/internal/auth"
	"dialer-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireTenant rejects callers whose token carries no tenant. Every /v1 route
// is tenant-scoped, so this runs before any role check.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.TenantID(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole lets the request through when Allowed(role, allowed...) holds.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil || id.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !Allowed(id.Role, allowed...) {
			logger.FromGin(c).Warn("role denied", "role", id.Role, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
