package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/export"
)

type photoFetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type cardRenderer interface {
	Render(card export.Card) ([]byte, error)
}

// CardService renders printable student ID cards.
type CardService struct {
	students *StudentService
	photos   photoFetcher
	renderer cardRenderer
	school   string
	tagline  string
	logger   *zap.Logger
}

// NewCardService constructs a CardService.
func NewCardService(students *StudentService, photos photoFetcher, renderer cardRenderer, school, tagline string, logger *zap.Logger) *CardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewIDCardRenderer()
	}
	return &CardService{students: students, photos: photos, renderer: renderer, school: school, tagline: tagline, logger: logger}
}

// Render produces the two-page card for a student. A photo that cannot be
// fetched leaves an empty frame on the card.
func (s *CardService) Render(ctx context.Context, studentID string) (*models.ExportFile, error) {
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var photo []byte
	if student.Photo != "" && s.photos != nil {
		photo, err = s.photos.Download(ctx, student.Photo)
		if err != nil {
			s.logger.Warn("failed to fetch student photo", zap.String("student_id", student.ID), zap.Error(err))
			photo = nil
		}
	}

	body, err := s.renderer.Render(export.Card{
		SchoolName: s.school,
		Tagline:    s.tagline,
		StudentID:  student.ID,
		Name:       student.Name,
		Group:      student.Group,
		Photo:      photo,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render id card")
	}

	return &models.ExportFile{
		Filename:    "carnet-" + student.ID + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}
