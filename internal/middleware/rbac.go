package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nkosi-dev/sekolo-pay-api/internal/models"
	appErrors "github.com/nkosi-dev/sekolo-pay-api/pkg/errors"
	"github.com/nkosi-dev/sekolo-pay-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes. The JWT
// middleware must run first.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
