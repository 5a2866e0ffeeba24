package middleware

import (
	"github.com/gin-gonic/gin"

	"library-backend/internal/shared/identity"
	"library-backend/internal/shared/response"
)

// RequireRole lets the request through only for the listed roles.
// Must run after AuthMiddleware.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	allowed := make(map[identity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		if _, ok := allowed[id.Role]; !ok {
			response.Forbidden(c, "access denied for role "+string(id.Role))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff is RequireRole(admin, librarian)
func RequireStaff() gin.HandlerFunc {
	return RequireRole(identity.RoleAdmin, identity.RoleLibrarian)
}
