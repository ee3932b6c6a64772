package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/middleware"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
)

// claimsFromContext returns the authenticated caller's claims, or nil when
// the request carried no valid session.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// clientMeta captures the caller address fields stamped into audit entries.
func clientMeta(c *gin.Context) models.LoginRequest {
	return models.LoginRequest{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
