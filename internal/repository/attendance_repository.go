package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
)

const attendanceColumns = "id, estudiante_id, nombre, grupo, fecha_hora"

// AttendanceRepository persists the attendance ledger.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ExistsBetween reports whether the student has an event in [from, to).
func (r *AttendanceRepository) ExistsBetween(ctx context.Context, studentID string, from, to time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM asistencias WHERE estudiante_id = $1 AND fecha_hora >= $2 AND fecha_hora < $3)`
	if err := r.db.GetContext(ctx, &exists, query, studentID, from.UTC(), to.UTC()); err != nil {
		return false, fmt.Errorf("check attendance window: %w", err)
	}
	return exists, nil
}

// Insert appends an event and assigns its generated id.
func (r *AttendanceRepository) Insert(ctx context.Context, event *models.AttendanceEvent) error {
	query := `INSERT INTO asistencias (estudiante_id, nombre, grupo, fecha_hora) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, event.StudentID, event.Name, event.Group, event.Timestamp.UTC()).Scan(&event.ID); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ListAll returns the whole ledger in ascending time order.
func (r *AttendanceRepository) ListAll(ctx context.Context) ([]models.AttendanceEvent, error) {
	var events []models.AttendanceEvent
	query := "SELECT " + attendanceColumns + " FROM asistencias ORDER BY fecha_hora ASC, id ASC"
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return events, nil
}

// ListBetween returns events in [from, to) ascending.
func (r *AttendanceRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.AttendanceEvent, error) {
	var events []models.AttendanceEvent
	query := "SELECT " + attendanceColumns + " FROM asistencias WHERE fecha_hora >= $1 AND fecha_hora < $2 ORDER BY fecha_hora ASC, id ASC"
	if err := r.db.SelectContext(ctx, &events, query, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list attendance range: %w", err)
	}
	return events, nil
}

// ListByStudent returns a page of a student's events, newest first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, int, error) {
	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM asistencias WHERE estudiante_id = $1 ORDER BY fecha_hora DESC, id DESC LIMIT %d OFFSET %d", attendanceColumns, size, (page-1)*size)

	var events []models.AttendanceEvent
	if err := r.db.SelectContext(ctx, &events, query, filter.StudentID); err != nil {
		return nil, 0, fmt.Errorf("list student attendance: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM asistencias WHERE estudiante_id = $1", filter.StudentID); err != nil {
		return nil, 0, fmt.Errorf("count student attendance: %w", err)
	}
	return events, total, nil
}

// DeleteLatest removes the student's most recent event and returns it.
// sql.ErrNoRows is returned when the student has no events.
func (r *AttendanceRepository) DeleteLatest(ctx context.Context, studentID string) (*models.AttendanceEvent, error) {
	query := `DELETE FROM asistencias WHERE id = (
        SELECT id FROM asistencias WHERE estudiante_id = $1 ORDER BY fecha_hora DESC, id DESC LIMIT 1
    ) RETURNING ` + attendanceColumns

	var event models.AttendanceEvent
	if err := r.db.GetContext(ctx, &event, query, studentID); err != nil {
		return nil, err
	}
	return &event, nil
}
