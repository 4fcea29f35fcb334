package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"dialer-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// RequireAccessToken verifies an access token and injects the caller identity.
// Role checks belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return RequireAccessTokenAt(m, time.Now)
}

// RequireAccessTokenAt is RequireAccessToken with an injectable clock.
func RequireAccessTokenAt(m *Manager, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		tok, ok := strings.CutPrefix(raw, bearerPrefix)
		if !ok || tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.Verify(tok, TokenTypeAccess, now())
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			logger.FromGin(c).Info("access token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		id := claims.Identity()
		ctx := WithIdentity(c.Request.Context(), id.UserID, id.TenantID, id.Role)
		ctx = logger.With(ctx, logger.ForTenant(ctx, id.TenantID).With("user_id", id.UserID))
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", id.UserID)
		c.Set(logger.TenantKey, id.TenantID)
		c.Set("role", id.Role)

		c.Next()
	}
}
