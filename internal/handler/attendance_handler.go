package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/response"
)

type attendanceService interface {
	RecordCheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInResult, error)
	UndoLastCheckIn(ctx context.Context, studentID string) (*models.UndoResult, error)
	History(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, *models.Pagination, error)
}

type exportService interface {
	Attendance(ctx context.Context, req models.ExportRequest) (*models.ExportFile, error)
}

// AttendanceHandler exposes the check-in workflow.
type AttendanceHandler struct {
	attendance attendanceService
	exports    exportService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService, exports exportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exports: exports}
}

// CheckIn godoc
// @Summary Record a student's arrival
// @Description A second check-in on the same local day is recorded and flagged with a warning.
// @Tags Attendance
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.CheckInRequest true "Student"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req models.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.attendance.RecordCheckIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Undo godoc
// @Summary Remove the student's most recent check-in
// @Tags Attendance
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.UndoRequest true "Student"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/undo [post]
func (h *AttendanceHandler) Undo(c *gin.Context) {
	var req models.UndoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.attendance.UndoLastCheckIn(c.Request.Context(), req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary List a student's check-ins, newest first
// @Tags Attendance
// @Security BearerAuth
// @Produce json
// @Param id path string true "Student ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	page, size := pageParams(c)
	events, pagination, err := h.attendance.History(c.Request.Context(), models.AttendanceFilter{
		StudentID: c.Param("id"),
		Page:      page,
		PageSize:  size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Export godoc
// @Summary Export attendance for a local date range
// @Tags Attendance
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param from query string true "First day (YYYY-MM-DD)"
// @Param to query string true "Last day (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	file, err := h.exports.Attendance(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}
