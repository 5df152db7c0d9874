package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	"github.com/noah-isme/kiosk-attendance-api/pkg/jobs"
)

func TestSideEffectServiceMirrorDisabledIsSkipped(t *testing.T) {
	metrics := NewMetricsService()
	mirror := NewMirrorService(&mockLedger{}, nil, nil, nil, nil)
	svc := NewSideEffectService(mirror, NewNotificationService(&mockSender{}, nil, "", nil, nil), metrics, nil)

	require.NoError(t, svc.Handle(context.Background(), jobs.Job{Type: models.JobMirrorResync}))
	assert.Contains(t, scrape(t, metrics), sideEffectSeries(models.JobMirrorResync, SideEffectSkipped, 1))
}

func TestSideEffectServiceNotificationFromSerialisedPayload(t *testing.T) {
	sender := &mockSender{}
	metrics := NewMetricsService()
	svc := NewSideEffectService(NewMirrorService(&mockLedger{}, nil, nil, nil, nil), NewNotificationService(sender, nil, "Colegio", bogota(t), nil), metrics, nil)

	// Payloads read back from redis are generic maps.
	job := jobs.Job{Type: models.JobNotificationCheckIn, Payload: map[string]interface{}{
		"student_id": "123",
		"name":       "Ana",
		"group":      "5A",
		"email":      "acudiente@example.com",
		"timestamp":  time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}}
	require.NoError(t, svc.Handle(context.Background(), job))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTML, "08:00:00")
	assert.Contains(t, scrape(t, metrics), sideEffectSeries(models.JobNotificationCheckIn, SideEffectSucceeded, 1))
}

func TestSideEffectServiceFailures(t *testing.T) {
	sheet := newMockSheet()
	sheet.appendErr = errors.New("quota")
	ledger := &mockLedger{events: []models.AttendanceEvent{{StudentID: "1", Timestamp: time.Now()}}}
	metrics := NewMetricsService()
	svc := NewSideEffectService(NewMirrorService(ledger, sheet, nil, nil, nil), NewNotificationService(&mockSender{}, nil, "", nil, nil), metrics, nil)

	require.Error(t, svc.Handle(context.Background(), jobs.Job{Type: models.JobMirrorResync}))
	require.Error(t, svc.Handle(context.Background(), jobs.Job{Type: "unknown"}))
	assert.Contains(t, scrape(t, metrics), sideEffectSeries(models.JobMirrorResync, SideEffectFailed, 1))
}

func scrape(t *testing.T, metrics *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func sideEffectSeries(kind, status string, n int) string {
	return fmt.Sprintf("side_effects_total{kind=%q,status=%q} %d", kind, status, n)
}
