package service

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"time"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	"github.com/noah-isme/kiosk-attendance-api/internal/repository"
	"github.com/noah-isme/kiosk-attendance-api/pkg/cloudinary"
	"github.com/noah-isme/kiosk-attendance-api/pkg/jobs"
	"github.com/noah-isme/kiosk-attendance-api/pkg/mailer"
)

type mockStudentRepo struct {
	students  map[string]models.Student
	deleted   []string
	createErr error
	findErr   error
	deleteErr error
}

func newMockStudentRepo(students ...models.Student) *mockStudentRepo {
	m := &mockStudentRepo{students: make(map[string]models.Student)}
	for _, s := range students {
		m.students[s.ID] = s
	}
	return m
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.students[id]
	return ok, nil
}

func (m *mockStudentRepo) List(ctx context.Context, filter repository.StudentFilter) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockLedger struct {
	events    []models.AttendanceEvent
	nextID    int64
	insertErr error
}

func (m *mockLedger) ExistsBetween(ctx context.Context, studentID string, from, to time.Time) (bool, error) {
	for _, e := range m.events {
		if e.StudentID == studentID && !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLedger) Insert(ctx context.Context, event *models.AttendanceEvent) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.nextID++
	event.ID = m.nextID
	m.events = append(m.events, *event)
	return nil
}

func (m *mockLedger) DeleteLatest(ctx context.Context, studentID string) (*models.AttendanceEvent, error) {
	idx := -1
	for i, e := range m.events {
		if e.StudentID != studentID {
			continue
		}
		if idx == -1 || e.Timestamp.After(m.events[idx].Timestamp) {
			idx = i
		}
	}
	if idx == -1 {
		return nil, sql.ErrNoRows
	}
	removed := m.events[idx]
	m.events = append(m.events[:idx], m.events[idx+1:]...)
	return &removed, nil
}

func (m *mockLedger) ListByStudent(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, int, error) {
	var out []models.AttendanceEvent
	for _, e := range m.events {
		if e.StudentID == filter.StudentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, len(out), nil
}

func (m *mockLedger) ListAll(ctx context.Context) ([]models.AttendanceEvent, error) {
	out := append([]models.AttendanceEvent(nil), m.events...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *mockLedger) ListBetween(ctx context.Context, from, to time.Time) ([]models.AttendanceEvent, error) {
	all, _ := m.ListAll(ctx)
	var out []models.AttendanceEvent
	for _, e := range all {
		if !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockSheet keeps rows in memory with a header at index 0.
type mockSheet struct {
	rows       [][]string
	deleted    []int64
	appendErr  error
	rowsErr    error
	deleteErr  error
	clearCalls int
}

func newMockSheet() *mockSheet {
	return &mockSheet{rows: [][]string{{"ID", "Nombre", "Grupo", "Fecha y hora"}}}
}

func (m *mockSheet) Rows(ctx context.Context) ([][]string, error) {
	if m.rowsErr != nil {
		return nil, m.rowsErr
	}
	return m.rows, nil
}

func (m *mockSheet) ClearData(ctx context.Context) error {
	m.clearCalls++
	m.rows = m.rows[:1]
	return nil
}

func (m *mockSheet) Append(ctx context.Context, rows [][]string) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *mockSheet) DeleteRow(ctx context.Context, index int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, index)
	m.rows = append(m.rows[:index], m.rows[index+1:]...)
	return nil
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return q.err
}

type mockSender struct {
	sent []mailer.Message
	err  error
}

func (m *mockSender) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockImageHost struct {
	uploads   []string
	destroyed []string
	uploadErr error
	destroyOK bool
}

func (m *mockImageHost) Upload(ctx context.Context, r io.Reader, filename string) (*cloudinary.UploadResult, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	data, _ := io.ReadAll(r)
	m.uploads = append(m.uploads, string(data))
	id := "students/" + filename
	return &cloudinary.UploadResult{PublicID: id, SecureURL: "https://res.cloudinary.com/demo/image/upload/v1/" + id + ".jpg"}, nil
}

func (m *mockImageHost) Destroy(ctx context.Context, publicID string) (bool, error) {
	m.destroyed = append(m.destroyed, publicID)
	return m.destroyOK, nil
}

type mockSessions struct {
	revoked map[string]time.Duration
}

func (m *mockSessions) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if m.revoked == nil {
		m.revoked = map[string]time.Duration{}
	}
	m.revoked[id] = ttl
	return nil
}

func (m *mockSessions) IsRevoked(ctx context.Context, id string) (bool, error) {
	_, ok := m.revoked[id]
	return ok, nil
}
