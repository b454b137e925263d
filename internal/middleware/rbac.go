package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/campusworks/roster-api/internal/models"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
	"github.com/campusworks/roster-api/pkg/response"
)

// RequireKinds restricts a route to the listed account kinds.
func RequireKinds(kinds ...models.UserKind) gin.HandlerFunc {
	allowed := make(map[models.UserKind]struct{}, len(kinds))
	for _, kind := range kinds {
		allowed[kind] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		if _, ok := allowed[claims.Kind]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminOnly is the staff-management gate.
func AdminOnly() gin.HandlerFunc {
	return RequireKinds(models.KindAdmin)
}
