package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	"github.com/noah-isme/kiosk-attendance-api/internal/repository"
	"github.com/noah-isme/kiosk-attendance-api/internal/service"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/response"
)

const maxPhotoBytes = 5 << 20

type studentService interface {
	List(ctx context.Context, filter repository.StudentFilter) ([]models.Student, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	Register(ctx context.Context, req models.RegisterStudentRequest, photo *service.PhotoUpload) (*models.Student, error)
	Update(ctx context.Context, id string, req models.UpdateStudentRequest, photo *service.PhotoUpload) (*models.Student, error)
	Delete(ctx context.Context, id string) error
}

type cardService interface {
	Render(ctx context.Context, studentID string) (*models.ExportFile, error)
}

// StudentHandler exposes student directory endpoints.
type StudentHandler struct {
	students studentService
	cards    cardService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, cards cardService) *StudentHandler {
	return &StudentHandler{students: students, cards: cards}
}

// List godoc
// @Summary List students
// @Tags Students
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search by id or name"
// @Param group query string false "Filter by group"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := repository.StudentFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Group:    strings.TrimSpace(c.Query("group")),
		Page:     page,
		PageSize: size,
	}
	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Security BearerAuth
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Register a student with a photo
// @Tags Students
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id formData string true "Student ID"
// @Param name formData string true "Full name"
// @Param group formData string true "Group"
// @Param email formData string true "Guardian email"
// @Param photo formData file true "Photo"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req models.RegisterStudentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form"))
		return
	}
	photo, err := readPhoto(c, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Register(c.Request.Context(), req, photo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student's group, email or photo
// @Tags Students
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Student ID"
// @Param group formData string true "Group"
// @Param email formData string true "Guardian email"
// @Param photo formData file false "Replacement photo"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req models.UpdateStudentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form"))
		return
	}
	photo, err := readPhoto(c, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), req, photo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student and the hosted photo
// @Tags Students
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Card godoc
// @Summary Render the student's ID card
// @Tags Students
// @Security BearerAuth
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Router /students/{id}/card [get]
func (h *StudentHandler) Card(c *gin.Context) {
	file, err := h.cards.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Inline(c, file.ContentType, file.Filename, file.Body)
}

// readPhoto loads the "photo" form file into memory after checking its size
// and that its content sniffs as an image.
func readPhoto(c *gin.Context, required bool) (*service.PhotoUpload, error) {
	header, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, nil
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo is required")
	}
	if header.Size > maxPhotoBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo must be 5MB or smaller")
	}

	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable photo")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable photo")
	}
	if len(data) > maxPhotoBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo must be 5MB or smaller")
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo must be an image")
	}
	return &service.PhotoUpload{Reader: bytes.NewReader(data), Filename: header.Filename}, nil
}
