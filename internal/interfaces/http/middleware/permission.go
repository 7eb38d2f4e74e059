package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medbill/backend/internal/interfaces/http/dto"
)

// RequirePermission guards a route behind one permission code. The
// route tables attach it per endpoint, e.g. bill:export on the export
// routes and user:manage on the user admin group.
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission admits callers holding at least one of the
// listed permission codes.
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil || !claims.HasAnyPermission(permissions...) {
			denyPermission(c)
			return
		}
		c.Next()
	}
}

// RequireAllPermissions admits callers holding every listed
// permission code.
func RequireAllPermissions(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			denyPermission(c)
			return
		}
		for _, permission := range permissions {
			if !claims.HasPermission(permission) {
				denyPermission(c)
				return
			}
		}
		c.Next()
	}
}

func denyPermission(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
		dto.ErrCodeForbidden,
		"Access denied: insufficient permissions",
		c.GetString("request_id"),
	))
}
