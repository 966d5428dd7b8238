package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
	"github.com/noah-isme/ipes-academic-api/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the resolved principal.
const ContextPrincipalKey = "principal"

// Capabilities resolves the acting principal from the verified claims once per request.
// It must run after JWT.
func Capabilities() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Set(ContextPrincipalKey, models.PrincipalFromClaims(claims))
		c.Next()
	}
}

// RequireCapability rejects principals lacking any of the listed capabilities.
// Gates check capabilities themselves; this guard is for routes without a gate behind them.
func RequireCapability(caps ...models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, capability := range caps {
			if !principal.Can(capability) {
				response.Error(c, appErrors.ErrForbidden)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Capabilities, or nil.
func PrincipalFrom(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*models.Principal)
	return principal
}
