package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kiosk-attendance-api/internal/dto"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/response"
)

type photoService interface {
	DeletePhoto(ctx context.Context, url string) (string, error)
}

// MediaHandler manages hosted images.
type MediaHandler struct {
	photos photoService
}

// NewMediaHandler constructs MediaHandler.
func NewMediaHandler(photos photoService) *MediaHandler {
	return &MediaHandler{photos: photos}
}

// DeletePhoto godoc
// @Summary Delete a hosted photo by URL
// @Tags Media
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.DeletePhotoRequest true "Photo URL"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /photos [delete]
// @Router /eliminarFoto [post]
func (h *MediaHandler) DeletePhoto(c *gin.Context) {
	var req dto.DeletePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithData(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"), dto.DeletePhotoResponse{})
		return
	}
	publicID, err := h.photos.DeletePhoto(c.Request.Context(), req.URL)
	if err != nil {
		response.ErrorWithData(c, err, dto.DeletePhotoResponse{Success: false, PublicID: publicID})
		return
	}
	response.JSON(c, http.StatusOK, dto.DeletePhotoResponse{Success: true, PublicID: publicID}, nil)
}
