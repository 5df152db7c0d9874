package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
	"github.com/noah-isme/kiosk-attendance-api/pkg/export"
)

const (
	exportDateLayout = "2006-01-02"
	maxExportDays    = 366
)

var exportHeaders = []string{"ID", "Nombre", "Grupo", "Fecha y hora"}

type rangeLedger interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.AttendanceEvent, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders attendance over a local date range.
type ExportService struct {
	ledger    rangeLedger
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	loc       *time.Location
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(ledger rangeLedger, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, loc *time.Location, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	if csv == nil {
		csv = &export.CSVExporter{BOM: true}
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{ledger: ledger, csv: csv, pdf: pdf, validator: validate, loc: loc, logger: logger}
}

// Attendance exports events between the from and to dates, both inclusive.
func (s *ExportService) Attendance(ctx context.Context, req models.ExportRequest) (*models.ExportFile, error) {
	if req.Format == "" {
		req.Format = "csv"
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}

	fromDay, err := time.ParseInLocation(exportDateLayout, req.From, s.loc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid from date")
	}
	toDay, err := time.ParseInLocation(exportDateLayout, req.To, s.loc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid to date")
	}
	if toDay.Before(fromDay) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	end := toDay.AddDate(0, 0, 1)
	if end.Sub(fromDay) > maxExportDays*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("export range is limited to %d days", maxExportDays))
	}

	events, err := s.ledger.ListBetween(ctx, fromDay, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read attendance")
	}

	data := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(events))}
	for _, event := range events {
		data.Rows = append(data.Rows, map[string]string{
			"ID":           event.StudentID,
			"Nombre":       event.Name,
			"Grupo":        event.Group,
			"Fecha y hora": FormatLocal(event.Timestamp, s.loc),
		})
	}

	base := fmt.Sprintf("asistencias_%s_%s", req.From, req.To)
	switch req.Format {
	case "pdf":
		title := fmt.Sprintf("Asistencias\n%s - %s", fromDay.Format("02/01/2006"), toDay.Format("02/01/2006"))
		body, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &models.ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		body, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &models.ExportFile{Filename: base + ".csv", ContentType: "text/csv; charset=utf-8", Body: body}, nil
	}
}
