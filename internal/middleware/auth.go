package middleware

import (
	"net/http"

	"obra-manager/internal/access"

	"github.com/gin-gonic/gin"
)

// RequireAuth rejects requests without a session user. It relies on InjectUser
// having run first.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Principal(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No autenticado"})
			return
		}
		c.Next()
	}
}

// RequirePermission lets the request through when the caller holds at least
// one of perms.
func RequirePermission(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Principal(c)
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No autenticado"})
			return
		}
		if !access.HasAny(p, perms...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acceso denegado"})
			return
		}
		c.Next()
	}
}
