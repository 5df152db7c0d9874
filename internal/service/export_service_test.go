package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
)

func exportLedger() *mockLedger {
	return &mockLedger{events: []models.AttendanceEvent{
		{ID: 1, StudentID: "123", Name: "Ana", Group: "5A", Timestamp: time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC)},
		// 23:30 on Mar 2 in Bogota.
		{ID: 2, StudentID: "456", Name: "Luis", Group: "6B", Timestamp: time.Date(2024, 3, 3, 4, 30, 0, 0, time.UTC)},
		{ID: 3, StudentID: "789", Name: "Eva", Group: "6B", Timestamp: time.Date(2024, 3, 3, 5, 30, 0, 0, time.UTC)},
	}}
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(exportLedger(), nil, nil, nil, bogota(t), nil)

	file, err := svc.Attendance(context.Background(), models.ExportRequest{From: "2024-03-01", To: "2024-03-02"})
	require.NoError(t, err)
	assert.Equal(t, "asistencias_2024-03-01_2024-03-02.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	body := strings.TrimPrefix(string(file.Body), "\ufeff")
	assert.Equal(t, "ID,Nombre,Grupo,Fecha y hora\n"+
		"123,Ana,5A,08:00:00 01/03/2024\n"+
		"456,Luis,6B,23:30:00 02/03/2024\n", body)
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(exportLedger(), nil, nil, nil, bogota(t), nil)

	file, err := svc.Attendance(context.Background(), models.ExportRequest{From: "2024-03-01", To: "2024-03-03", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestExportServiceValidation(t *testing.T) {
	svc := NewExportService(exportLedger(), nil, nil, nil, bogota(t), nil)

	cases := []models.ExportRequest{
		{From: "2024-03-02", To: "2024-03-01"},
		{From: "01/03/2024", To: "2024-03-01"},
		{From: "2024-03-01", To: "2024-03-01", Format: "xlsx"},
		{From: "2023-01-01", To: "2024-03-01"},
	}
	for _, req := range cases {
		_, err := svc.Attendance(context.Background(), req)
		require.Error(t, err, "%+v", req)
		assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	}
}
