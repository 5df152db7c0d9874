package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kiosk-attendance-api/internal/middleware"
	"github.com/noah-isme/kiosk-attendance-api/internal/models"
)

func sessionFromContext(c *gin.Context) *models.SessionClaims {
	claims, ok := middleware.SessionFromContext(c)
	if !ok {
		return nil
	}
	return claims
}

func pageParams(c *gin.Context) (int, int) {
	page := parseIntDefault(c.Query("page"), 1)
	size := parseIntDefault(c.Query("limit"), 20)
	return page, size
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
