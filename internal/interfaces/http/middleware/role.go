package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/shopdesk/backoffice/internal/interfaces/http/dto"
)

// RequireRole allows the request when the authenticated caller holds any of
// roles. It must run after JWTAuthMiddleware; an anonymous caller is a 401.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetJWTClaims(c) == nil {
			abortWithError(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		held := GetJWTRoles(c)
		for _, role := range roles {
			if slices.Contains(held, role) {
				c.Next()
				return
			}
		}
		abortWithError(c, dto.ErrCodeForbidden, "Insufficient role")
	}
}
