package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-backend/internal/shared/identity"
	"library-backend/internal/shared/response"
	"library-backend/pkg/jwt"
)

const identityKey = "identity"

// AuthMiddleware verifies the bearer token and puts the caller's identity on
// both the gin context and the request context.
func AuthMiddleware(tokens *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		id, err := identityFromClaims(claims)
		if err != nil {
			response.Unauthorized(c, "invalid token claims")
			c.Abort()
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func identityFromClaims(claims *jwt.Claims) (identity.Identity, error) {
	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return identity.Identity{}, err
	}

	id := identity.Identity{
		AccountID: accountID,
		Email:     claims.Email,
		Role:      identity.Role(claims.Role),
	}
	if !id.Role.Valid() {
		return identity.Identity{}, jwt.ErrInvalidToken
	}
	if claims.MemberID != "" {
		memberID, err := uuid.Parse(claims.MemberID)
		if err != nil {
			return identity.Identity{}, err
		}
		id.LinkedMemberID = &memberID
	}
	return id, nil
}

// CurrentIdentity returns what AuthMiddleware stored
func CurrentIdentity(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}
