package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/jobs"
)

type attendanceLedger interface {
	ExistsBetween(ctx context.Context, studentID string, from, to time.Time) (bool, error)
	Insert(ctx context.Context, event *models.AttendanceEvent) error
	DeleteLatest(ctx context.Context, studentID string) (*models.AttendanceEvent, error)
	ListByStudent(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, int, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type mirrorRowRemover interface {
	Enabled() bool
	DeleteLastRow(ctx context.Context, studentID string) (int64, error)
}

type sideEffectQueue interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

// AttendanceService implements the kiosk check-in workflow.
type AttendanceService struct {
	students  studentLookup
	ledger    attendanceLedger
	mirror    mirrorRowRemover
	outbox    sideEffectQueue
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewAttendanceService constructs an AttendanceService. loc is the reporting
// timezone that defines day boundaries.
func NewAttendanceService(students studentLookup, ledger attendanceLedger, mirror mirrorRowRemover, outbox sideEffectQueue, validate *validator.Validate, metrics *MetricsService, loc *time.Location, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceService{
		students:  students,
		ledger:    ledger,
		mirror:    mirror,
		outbox:    outbox,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// RecordCheckIn appends an attendance event for the student. A prior event on
// the same local day produces a warning but does not block the check-in.
// Mirror resync and guardian notification are queued after the insert and
// never affect the outcome.
func (s *AttendanceService) RecordCheckIn(ctx context.Context, req models.CheckInRequest) (*models.CheckInResult, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	if req.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "please enter a student id")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	now := s.now().UTC()
	result := &models.CheckInResult{Student: *student}

	from, to := LocalDayWindow(now, s.loc)
	duplicate, err := s.ledger.ExistsBetween(ctx, student.ID, from, to)
	if err != nil {
		s.logger.Warn("duplicate check failed", zap.String("student_id", student.ID), zap.Error(err))
	}
	if duplicate {
		result.Duplicate = true
		result.Warning = fmt.Sprintf("%s of group %s was already checked in today", student.Name, student.Group)
	}

	event := models.AttendanceEvent{
		StudentID: student.ID,
		Name:      student.Name,
		Group:     student.Group,
		Timestamp: now,
	}
	if err := s.ledger.Insert(ctx, &event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, "failed to record attendance")
	}

	result.Event = event
	result.LocalTime = FormatLocal(event.Timestamp, s.loc)
	s.metrics.RecordCheckIn(duplicate)
	s.logger.Info("attendance recorded",
		zap.Int64("event_id", event.ID),
		zap.String("student_id", student.ID),
		zap.Bool("duplicate", duplicate),
	)

	s.enqueueSideEffects(context.WithoutCancel(ctx), event, *student)
	return result, nil
}

func (s *AttendanceService) enqueueSideEffects(ctx context.Context, event models.AttendanceEvent, student models.Student) {
	if s.outbox == nil {
		return
	}
	pending := []jobs.Job{
		{
			ID:      uuid.NewString(),
			Type:    models.JobMirrorResync,
			Payload: models.MirrorResyncPayload{Reason: "checkin", EventID: event.ID},
		},
		{
			ID:   uuid.NewString(),
			Type: models.JobNotificationCheckIn,
			Payload: models.CheckInNotificationPayload{
				EventID:   event.ID,
				StudentID: event.StudentID,
				Name:      event.Name,
				Group:     event.Group,
				Email:     student.Email,
				Timestamp: event.Timestamp,
			},
		},
	}
	for _, job := range pending {
		if err := s.outbox.Enqueue(ctx, job); err != nil {
			s.logger.Warn("side effect not completed",
				zap.String("type", job.Type),
				zap.Int64("event_id", event.ID),
				zap.Error(err),
			)
		}
	}
}

// UndoLastCheckIn deletes the student's most recent event, then the last
// matching spreadsheet row. When no row matches, the ledger deletion stands
// and a not found error is returned. Any other spreadsheet failure is a write
// error.
func (s *AttendanceService) UndoLastCheckIn(ctx context.Context, studentID string) (*models.UndoResult, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "please enter a student id")
	}

	event, err := s.ledger.DeleteLatest(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no attendance records for student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, "failed to delete attendance")
	}
	s.logger.Info("attendance removed", zap.Int64("event_id", event.ID), zap.String("student_id", studentID))

	result := &models.UndoResult{Event: *event, MirrorRowIndex: -1}
	if s.mirror == nil || !s.mirror.Enabled() {
		return result, nil
	}

	index, err := s.mirror.DeleteLastRow(ctx, studentID)
	if err != nil {
		s.logger.Warn("ledger and spreadsheet diverged after undo", zap.String("student_id", studentID), zap.Error(err))
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrWrite.Code, appErrors.ErrWrite.Status, "failed to remove spreadsheet row")
	}
	result.MirrorRowIndex = index
	return result, nil
}

// History returns a page of the student's events, newest first.
func (s *AttendanceService) History(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, *models.Pagination, error) {
	if _, err := s.students.FindByID(ctx, filter.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	events, total, err := s.ledger.ListByStudent(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return events, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
