package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kiosk-attendance-api/internal/dto"
	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/response"
)

type mirrorService interface {
	Resync(ctx context.Context) (int, error)
}

type undoService interface {
	UndoLastCheckIn(ctx context.Context, studentID string) (*models.UndoResult, error)
}

type mailService interface {
	Send(ctx context.Context, req dto.SendMailRequest) error
}

// LegacyHandler serves the endpoints used by existing kiosk front-ends.
type LegacyHandler struct {
	mirror     mirrorService
	attendance undoService
	mail       mailService
}

// NewLegacyHandler constructs LegacyHandler.
func NewLegacyHandler(mirror mirrorService, attendance undoService, mail mailService) *LegacyHandler {
	return &LegacyHandler{mirror: mirror, attendance: attendance, mail: mail}
}

// SyncAttendance godoc
// @Summary Rebuild the spreadsheet mirror from the ledger
// @Tags Legacy
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /syncAsistencias [post]
func (h *LegacyHandler) SyncAttendance(c *gin.Context) {
	rows, err := h.mirror.Resync(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SyncResponse{Success: true, Rows: rows}, nil)
}

// DeleteAttendance godoc
// @Summary Undo the student's most recent check-in
// @Tags Legacy
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.DeleteAttendanceRequest true "Student"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /eliminarAsistencia [post]
func (h *LegacyHandler) DeleteAttendance(c *gin.Context) {
	var req dto.DeleteAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if _, err := h.attendance.UndoLastCheckIn(c.Request.Context(), req.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Success: true, Message: "attendance removed"}, nil)
}

// SendMail godoc
// @Summary Send an HTML email
// @Tags Legacy
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.SendMailRequest true "Message"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /enviarCorreo [post]
func (h *LegacyHandler) SendMail(c *gin.Context) {
	var req dto.SendMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.mail.Send(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Success: true, Message: "email sent"}, nil)
}
