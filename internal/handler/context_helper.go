package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/claudyne/claudyne-content-api/internal/middleware"
	"github.com/claudyne/claudyne-content-api/internal/models"
)

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

// audienceFromClaims derives the catalog audience from the caller's claims.
// Anonymous callers are the public audience.
func audienceFromClaims(claims *models.JWTClaims) models.Audience {
	if claims == nil {
		return models.AudiencePublic
	}
	switch claims.Role {
	case models.RoleAdmin:
		return models.AudienceAdmin
	case models.RoleStudent:
		return models.AudienceStudent
	default:
		return models.AudiencePublic
	}
}
