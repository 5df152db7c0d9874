package models

import "time"

// DisplayLayout renders instants as HH:mm:ss DD/MM/YYYY.
const DisplayLayout = "15:04:05 02/01/2006"

// AttendanceEvent is one check-in. Name and Group are copies taken at
// insertion time and never refreshed from the student record.
type AttendanceEvent struct {
	ID        int64     `db:"id" json:"id"`
	StudentID string    `db:"estudiante_id" json:"student_id"`
	Name      string    `db:"nombre" json:"name"`
	Group     string    `db:"grupo" json:"group"`
	Timestamp time.Time `db:"fecha_hora" json:"timestamp"`
}

// CheckInRequest identifies the student arriving at the kiosk.
type CheckInRequest struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
}

// CheckInResult reports the recorded event. Duplicate is set when the student
// already had an event earlier the same local day.
type CheckInResult struct {
	Event     AttendanceEvent `json:"event"`
	Student   Student         `json:"student"`
	LocalTime string          `json:"local_time"`
	Duplicate bool            `json:"duplicate"`
	Warning   string          `json:"warning,omitempty"`
}

// UndoRequest identifies whose latest check-in to remove.
type UndoRequest struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
}

// UndoResult describes the removed event and whether the mirror followed.
type UndoResult struct {
	Event          AttendanceEvent `json:"event"`
	MirrorRowIndex int64           `json:"mirror_row_index"`
}

// AttendanceFilter paginates a student's history.
type AttendanceFilter struct {
	StudentID string
	Page      int
	PageSize  int
}

// ExportRequest selects an inclusive range of local dates and output format.
type ExportRequest struct {
	From   string `form:"from" validate:"required,datetime=2006-01-02"`
	To     string `form:"to" validate:"required,datetime=2006-01-02"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
