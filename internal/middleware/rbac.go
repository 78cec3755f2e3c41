package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/formacademy/formacademy-api/internal/models"
	"github.com/formacademy/formacademy-api/internal/policy"
	appErrors "github.com/formacademy/formacademy-api/pkg/errors"
	"github.com/formacademy/formacademy-api/pkg/response"
)

// RequireCapability gates a route behind a policy-table lookup; holding any
// of the listed capabilities is enough. JWT must run first so the claims are
// available on the context.
func RequireCapability(table *policy.Table, capabilities ...policy.Capability) gin.HandlerFunc {
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

		allowed := false
		for _, capability := range capabilities {
			if table.Allows(claims.Role, capability) {
				allowed = true
				break
			}
		}
		if !allowed {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
