package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Roles known to the engine.
const (
	RoleDriver = "driver"
	RoleOps    = "ops"
	RoleAdmin  = "admin"
)

// RequireRoles is role-based access control. It only allows requests whose
// role is in allowedRoles, e.g.
//
//	r.POST("/absences/reverse", RequireRoles("ops", "admin"), handler)
//
// Auth must have set userRole in the context already.
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(userRoleKey)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized: no role in context",
				"code":  "unauthorized",
			})
			return
		}

		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "forbidden: role not allowed",
				"code":  "forbidden",
			})
			return
		}

		c.Next()
	}
}
