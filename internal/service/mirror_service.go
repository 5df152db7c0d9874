package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/internal/models"
	appErrors "github.com/noah-isme/kiosk-attendance-api/pkg/errors"
)

type mirrorLedger interface {
	ListAll(ctx context.Context) ([]models.AttendanceEvent, error)
}

type sheetClient interface {
	Rows(ctx context.Context) ([][]string, error)
	ClearData(ctx context.Context) error
	Append(ctx context.Context, rows [][]string) error
	DeleteRow(ctx context.Context, index int64) error
}

// MirrorService keeps the spreadsheet copy of the ledger. The sheet holds a
// header row followed by one row per event.
type MirrorService struct {
	ledger  mirrorLedger
	sheet   sheetClient
	loc     *time.Location
	metrics *MetricsService
	logger  *zap.Logger
}

// NewMirrorService constructs a MirrorService. A nil sheet disables the mirror.
func NewMirrorService(ledger mirrorLedger, sheet sheetClient, loc *time.Location, metrics *MetricsService, logger *zap.Logger) *MirrorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MirrorService{ledger: ledger, sheet: sheet, loc: loc, metrics: metrics, logger: logger}
}

// Enabled reports whether a spreadsheet is configured.
func (s *MirrorService) Enabled() bool {
	return s != nil && s.sheet != nil
}

// Resync replaces every data row with the full ledger in ascending order and
// returns the number of rows written.
func (s *MirrorService) Resync(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, appErrors.Clone(appErrors.ErrSync, "spreadsheet mirror is not configured")
	}

	events, err := s.ledger.ListAll(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read attendance ledger")
	}

	rows := s.Rows(events)

	if err := s.sheet.ClearData(ctx); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrSync.Code, appErrors.ErrSync.Status, "failed to clear spreadsheet")
	}
	if len(rows) > 0 {
		if err := s.sheet.Append(ctx, rows); err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrSync.Code, appErrors.ErrSync.Status, "failed to write spreadsheet rows")
		}
	}

	s.metrics.SetMirrorRows(len(rows))
	s.logger.Info("spreadsheet mirror resynced", zap.Int("rows", len(rows)))
	return len(rows), nil
}

// Rows renders events as mirror rows.
func (s *MirrorService) Rows(events []models.AttendanceEvent) [][]string {
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{event.StudentID, event.Name, event.Group, FormatLocal(event.Timestamp, s.loc)})
	}
	return rows
}

// DeleteLastRow removes the bottom-most row whose first cell is studentID and
// returns its zero-based index. The header row is never considered.
func (s *MirrorService) DeleteLastRow(ctx context.Context, studentID string) (int64, error) {
	if !s.Enabled() {
		return 0, appErrors.Clone(appErrors.ErrSync, "spreadsheet mirror is not configured")
	}

	rows, err := s.sheet.Rows(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrSync.Code, appErrors.ErrSync.Status, "failed to read spreadsheet")
	}

	for i := len(rows) - 1; i >= 1; i-- {
		if len(rows[i]) == 0 || rows[i][0] != studentID {
			continue
		}
		if err := s.sheet.DeleteRow(ctx, int64(i)); err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrSync.Code, appErrors.ErrSync.Status, "failed to delete spreadsheet row")
		}
		return int64(i), nil
	}

	return 0, appErrors.Clone(appErrors.ErrNotFound, "no spreadsheet row found for student")
}
