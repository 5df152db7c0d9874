package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/logger"
	"github.com/noah-isme/kiosk-attendance-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the kiosk session claims.
const ContextSessionKey = "kioskSession"

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.SessionClaims, error)
}

// Session protects routes by requiring an unlocked kiosk session token.
func Session(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "kiosk is locked"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, claims)
		c.Set(logger.StationKey, claims.Station)
		c.Next()
	}
}

// SessionFromContext returns the claims set by Session.
func SessionFromContext(c *gin.Context) (*models.SessionClaims, bool) {
	value, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.SessionClaims)
	return claims, ok
}
