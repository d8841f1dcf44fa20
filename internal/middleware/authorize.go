package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/authz"
	"github.com/noah-isme/tahfidz-admin-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

// Authorize enforces the role policy for one action on one resource.
// It must run after JWT.
func Authorize(action authz.Action, resource authz.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, _ := value.(*models.JWTClaims)

		decision := authz.Authorize(authz.PrincipalFromClaims(claims), action, resource)
		if !decision.Allowed {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, decision.Reason))
			c.Abort()
			return
		}
		c.Next()
	}
}
