package models

import "time"

// Side-effect job kinds queued after a check-in.
const (
	JobMirrorResync        = "mirror.resync"
	JobNotificationCheckIn = "notification.checkin"
)

// MirrorResyncPayload is carried by mirror.resync jobs.
type MirrorResyncPayload struct {
	Reason  string `json:"reason"`
	EventID int64  `json:"event_id,omitempty"`
}

// CheckInNotificationPayload is carried by notification.checkin jobs.
type CheckInNotificationPayload struct {
	EventID   int64     `json:"event_id"`
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Group     string    `json:"group"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}
