package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	"github.com/noah-isme/kiosk-attendance-api/internal/repository"
	"github.com/noah-isme/kiosk-attendance-api/pkg/cloudinary"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
)

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter repository.StudentFilter) ([]models.Student, int, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type imageHost interface {
	Upload(ctx context.Context, r io.Reader, filename string) (*cloudinary.UploadResult, error)
	Destroy(ctx context.Context, publicID string) (bool, error)
}

// PhotoUpload is an image file received from a registration form.
type PhotoUpload struct {
	Reader   io.Reader
	Filename string
}

// StudentService manages the student directory and hosted photos.
type StudentService struct {
	repo      studentStore
	images    imageHost
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentStore, images imageHost, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, images: images, validator: validate, logger: logger}
}

// List returns a page of students.
func (s *StudentService) List(ctx context.Context, filter repository.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

// Register uploads the photo and creates the student. Duplicate ids are
// rejected before anything is uploaded.
func (s *StudentService) Register(ctx context.Context, req models.RegisterStudentRequest, photo *PhotoUpload) (*models.Student, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	req.Group = strings.TrimSpace(req.Group)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if photo == nil || photo.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo is required")
	}

	exists, err := s.repo.Exists(ctx, req.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student id already registered")
	}

	uploaded, err := s.images.Upload(ctx, photo.Reader, photo.Filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to upload photo")
	}

	student := &models.Student{
		ID:    req.ID,
		Name:  req.Name,
		Group: req.Group,
		Photo: uploaded.SecureURL,
		Email: req.Email,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		s.discardPhoto(ctx, uploaded.PublicID)
		return nil, appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, "failed to create student")
	}

	s.logger.Info("student registered", zap.String("student_id", student.ID))
	return student, nil
}

// Update changes group and email, and replaces the photo when one is given.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest, photo *PhotoUpload) (*models.Student, error) {
	req.Group = strings.TrimSpace(req.Group)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousPhoto := student.Photo
	var uploadedID string
	if photo != nil && photo.Reader != nil {
		uploaded, err := s.images.Upload(ctx, photo.Reader, photo.Filename)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to upload photo")
		}
		student.Photo = uploaded.SecureURL
		uploadedID = uploaded.PublicID
	}
	student.Group = req.Group
	student.Email = req.Email

	if err := s.repo.Update(ctx, student); err != nil {
		if uploadedID != "" {
			s.discardPhoto(ctx, uploadedID)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, "failed to update student")
	}

	if uploadedID != "" && previousPhoto != "" && previousPhoto != student.Photo {
		s.discardPhotoURL(ctx, previousPhoto)
	}
	return student, nil
}

// Delete removes the student row, then the hosted photo. Photo removal
// failures are logged and do not fail the deletion.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, student.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, "failed to delete student")
	}
	s.logger.Info("student deleted", zap.String("student_id", student.ID))

	if student.Photo != "" {
		s.discardPhotoURL(ctx, student.Photo)
	}
	return nil
}

// DeletePhoto destroys the hosted image referenced by url and returns its
// public id.
func (s *StudentService) DeletePhoto(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "photo url is required")
	}
	publicID, err := cloudinary.PublicIDFromURL(url)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid photo url")
	}

	ok, err := s.images.Destroy(ctx, publicID)
	if err != nil {
		return publicID, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to delete photo")
	}
	if !ok {
		return publicID, appErrors.Clone(appErrors.ErrUpstream, "image host did not delete the photo")
	}
	return publicID, nil
}

func (s *StudentService) discardPhotoURL(ctx context.Context, url string) {
	if _, err := s.DeletePhoto(ctx, url); err != nil {
		s.logger.Warn("failed to delete hosted photo", zap.String("url", url), zap.Error(err))
	}
}

func (s *StudentService) discardPhoto(ctx context.Context, publicID string) {
	if ok, err := s.images.Destroy(ctx, publicID); err != nil || !ok {
		s.logger.Warn("failed to delete uploaded photo", zap.String("public_id", publicID), zap.Error(err))
	}
}
