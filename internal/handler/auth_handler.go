package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/response"
)

type authService interface {
	Unlock(ctx context.Context, req models.UnlockRequest) (*models.UnlockResponse, error)
	Lock(ctx context.Context, claims *models.SessionClaims) error
	Session(claims *models.SessionClaims) models.SessionInfo
}

// AuthHandler exposes the kiosk unlock gate.
type AuthHandler struct {
	auth authService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth authService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Unlock godoc
// @Summary Unlock a kiosk with the shared secret
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.UnlockRequest true "Shared secret"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/unlock [post]
func (h *AuthHandler) Unlock(c *gin.Context) {
	var req models.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.IP = c.ClientIP()

	resp, err := h.auth.Unlock(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Lock godoc
// @Summary Lock the kiosk by revoking the current session
// @Tags Auth
// @Security BearerAuth
// @Success 204
// @Router /auth/lock [post]
func (h *AuthHandler) Lock(c *gin.Context) {
	claims := sessionFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.auth.Lock(c.Request.Context(), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Session godoc
// @Summary Describe the current kiosk session
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	claims := sessionFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.auth.Session(claims), nil)
}
