package service

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/internal/dto"
	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/mailer"
)

// CheckInSubject is the subject line of arrival notifications.
const CheckInSubject = "Notificación de llegada al colegio"

//go:embed templates/*.html
var templateFS embed.FS

var checkInTemplate = template.Must(template.ParseFS(templateFS, "templates/checkin_email.html"))

type checkInEmail struct {
	Name      string
	Group     string
	LocalTime string
	School    string
	Year      int
}

// NotificationService sends email through the configured transport.
type NotificationService struct {
	sender    mailer.Sender
	validator *validator.Validate
	school    string
	loc       *time.Location
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(sender mailer.Sender, validate *validator.Validate, school string, loc *time.Location, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{sender: sender, validator: validate, school: school, loc: loc, logger: logger}
}

// Notify delivers one HTML message. Transport failures surface as
// DELIVERY_ERROR and are not retried here.
func (s *NotificationService) Notify(ctx context.Context, recipient, subject, htmlBody string) error {
	err := s.sender.Send(ctx, mailer.Message{To: recipient, Subject: subject, HTML: htmlBody})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrDelivery.Code, appErrors.ErrDelivery.Status, "failed to send email")
	}
	return nil
}

// Send validates and delivers an arbitrary message.
func (s *NotificationService) Send(ctx context.Context, req dto.SendMailRequest) error {
	req.Recipient = strings.TrimSpace(req.Recipient)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "recipient, subject and message are required")
	}
	return s.Notify(ctx, req.Recipient, req.Subject, req.Message)
}

// NotifyCheckIn emails the student's guardian about an arrival. Students
// without an email address are skipped.
func (s *NotificationService) NotifyCheckIn(ctx context.Context, payload models.CheckInNotificationPayload) (bool, error) {
	if strings.TrimSpace(payload.Email) == "" {
		s.logger.Debug("student has no email, skipping notification", zap.String("student_id", payload.StudentID))
		return false, nil
	}

	body, err := s.RenderCheckIn(payload)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render notification")
	}
	if err := s.Notify(ctx, payload.Email, CheckInSubject, body); err != nil {
		return false, err
	}
	return true, nil
}

// RenderCheckIn builds the arrival notification body.
func (s *NotificationService) RenderCheckIn(payload models.CheckInNotificationPayload) (string, error) {
	local := payload.Timestamp.In(s.loc)
	buf := &bytes.Buffer{}
	err := checkInTemplate.Execute(buf, checkInEmail{
		Name:      payload.Name,
		Group:     payload.Group,
		LocalTime: local.Format("15:04:05"),
		School:    s.school,
		Year:      local.Year(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
