package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
)

const roleContextKey = "callerRole"

// RoleMiddleware resolves the caller's role from the X-Role header. An
// absent header means an uploading center device; an unknown role value
// is rejected outright.
func RoleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-Role")
		if header == "" {
			c.Set(roleContextKey, models.RoleCenter)
			c.Next()
			return
		}
		role, ok := models.ParseRole(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false, "error": "Unknown role: " + header,
			})
			return
		}
		c.Set(roleContextKey, role)
		c.Next()
	}
}

// CallerRole returns the role resolved by RoleMiddleware.
func CallerRole(c *gin.Context) models.Role {
	if v, ok := c.Get(roleContextKey); ok {
		if role, ok := v.(models.Role); ok {
			return role
		}
	}
	return models.RoleCenter
}

// requireCapability gates an endpoint on one capability of the caller's
// role.
func requireCapability(check func(models.Capabilities) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		if !check(role.Caps()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false, "error": "Role " + string(role) + " is not permitted to perform this action",
			})
			return
		}
		c.Next()
	}
}
