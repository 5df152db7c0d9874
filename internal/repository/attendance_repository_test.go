package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
)

var attendanceCols = []string{"id", "estudiante_id", "nombre", "grupo", "fecha_hora"}

func TestAttendanceRepositoryExistsBetween(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM asistencias WHERE estudiante_id = $1 AND fecha_hora >= $2 AND fecha_hora < $3)")).
		WithArgs("123", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsBetween(context.Background(), "123", from, to)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	ts := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO asistencias (estudiante_id, nombre, grupo, fecha_hora) VALUES ($1, $2, $3, $4) RETURNING id")).
		WithArgs("123", "Ana", "5A", ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	event := &models.AttendanceEvent{StudentID: "123", Name: "Ana", Group: "5A", Timestamp: ts}
	require.NoError(t, repo.Insert(context.Background(), event))
	assert.Equal(t, int64(42), event.ID)
}

func TestAttendanceRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	ts := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM asistencias ORDER BY fecha_hora ASC, id ASC")).
		WillReturnRows(sqlmock.NewRows(attendanceCols).
			AddRow(1, "123", "Ana", "5A", ts).
			AddRow(2, "456", "Luis", "6B", ts.Add(time.Minute)))

	events, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Luis", events[1].Name)
}

func TestAttendanceRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	ts := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM asistencias WHERE estudiante_id = $1 ORDER BY fecha_hora DESC, id DESC LIMIT 10 OFFSET 10")).
		WithArgs("123").
		WillReturnRows(sqlmock.NewRows(attendanceCols).AddRow(1, "123", "Ana", "5A", ts))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM asistencias WHERE estudiante_id = $1")).
		WithArgs("123").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	events, total, err := repo.ListByStudent(context.Background(), models.AttendanceFilter{StudentID: "123", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteLatest(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	ts := time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)
	mock.ExpectQuery("DELETE FROM asistencias WHERE id = \\(\\s*SELECT id FROM asistencias WHERE estudiante_id = \\$1 ORDER BY fecha_hora DESC").
		WithArgs("123").
		WillReturnRows(sqlmock.NewRows(attendanceCols).AddRow(7, "123", "Ana", "5A", ts))

	event, err := repo.DeleteLatest(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, int64(7), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDeleteLatestNone(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery("DELETE FROM asistencias").
		WithArgs("999").
		WillReturnRows(sqlmock.NewRows(attendanceCols))

	_, err := repo.DeleteLatest(context.Background(), "999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
