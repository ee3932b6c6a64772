package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
	"github.com/Otsikow/unidoxia-sub010/pkg/response"
)

// RequireUniversity rejects university staff whose token carries no
// university binding. Admins pass through untouched; services apply the
// row-level tenancy checks themselves.
func RequireUniversity() gin.HandlerFunc {
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

		if claims.Role == models.RoleUniversity && (claims.UniversityID == nil || *claims.UniversityID == "") {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account is not bound to a university"))
			c.Abort()
			return
		}

		c.Next()
	}
}
