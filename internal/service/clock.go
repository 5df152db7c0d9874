package service

import (
	"time"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
)

// LocalDayWindow returns [midnight, midnight+24h) of the local day containing
// instant, expressed in UTC.
func LocalDayWindow(instant time.Time, loc *time.Location) (time.Time, time.Time) {
	local := instant.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.Add(24 * time.Hour).UTC()
}

// FormatLocal renders instant in the display layout for loc.
func FormatLocal(instant time.Time, loc *time.Location) string {
	return instant.In(loc).Format(models.DisplayLayout)
}
