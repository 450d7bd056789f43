package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/infrastructure/logger"
)

// Context keys set by the Principal middleware
const (
	// TenantIDKey carries the authenticated tenant ID
	TenantIDKey = "tenant_id"
	// UserIDKey carries the authenticated user ID
	UserIDKey = "user_id"
)

// Principal resolves the caller's tenant and user from trusted headers.
// The service sits behind an authenticating gateway that injects
// X-Tenant-ID and X-User-ID; requests without a valid tenant are rejected.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_UNAUTHORIZED",
					"message": "Missing X-Tenant-ID header",
				},
			})
			return
		}
		if _, err := uuid.Parse(tenantID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_UNAUTHORIZED",
					"message": "X-Tenant-ID is not a valid UUID",
				},
			})
			return
		}
		c.Set(TenantIDKey, tenantID)

		if userID := c.GetHeader("X-User-ID"); userID != "" {
			if _, err := uuid.Parse(userID); err == nil {
				c.Set(UserIDKey, userID)
			}
		}

		// Propagate identity into the request context for logging
		ctx := c.Request.Context()
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTenantID returns the tenant ID set by Principal, or empty string
func GetTenantID(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}

// GetUserID returns the user ID set by Principal, or empty string
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
