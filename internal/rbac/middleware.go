package rbac

import (
	"net/http"

	"pii-vault/internal/auth"

	"github.com/gin-gonic/gin"
)

// Require aborts the request with 403 unless the caller's role satisfies
// allow. Missing identity is a 401 (auth middleware should have run first).
//
// Authorization failures never touch storage; the check reads only the
// request context.
func Require(allow func(Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleStr, err := auth.Role(c.Request.Context())
		if err != nil || roleStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !allow(Parse(roleStr)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireReviewer gates the disclosure endpoints.
func RequireReviewer() gin.HandlerFunc { return Require(Role.CanDisclose) }

// RequireAdmin gates destructive endpoints.
func RequireAdmin() gin.HandlerFunc { return Require(Role.CanDelete) }
