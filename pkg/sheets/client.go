// Package sheets wraps the Google Sheets v4 API for a single four-column tab.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/noah-isme/kiosk-attendance-api/pkg/config"
)

// ErrNotConfigured is returned when no spreadsheet id has been configured.
var ErrNotConfigured = errors.New("sheets: spreadsheet not configured")

// Client reads and mutates the rows of one sheet tab.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheetName     string
	sheetID       int64
}

// New builds a client using service account credentials from the mirror
// configuration. Extra options are appended, mainly for tests.
func New(ctx context.Context, cfg config.MirrorConfig, extra ...option.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, ErrNotConfigured
	}

	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, extra...)

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: cfg.SheetName, sheetID: cfg.SheetID}, nil
}

func (c *Client) fullRange() string {
	return c.sheetName + "!A:D"
}

func (c *Client) dataRange() string {
	return c.sheetName + "!A2:D"
}

// Rows returns every populated row including the header.
func (c *Client) Rows(ctx context.Context) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.fullRange()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: get %s: %w", c.fullRange(), err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ClearData empties every row below the header.
func (c *Client) ClearData(ctx context.Context) error {
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.dataRange(), &gsheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: clear %s: %w", c.dataRange(), err)
	}
	return nil
}

// Append writes rows after the last populated row, values taken verbatim.
func (c *Client) Append(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = v
		}
		values = append(values, cells)
	}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.fullRange(), &gsheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append %d rows: %w", len(rows), err)
	}
	return nil
}

// DeleteRow removes the row at the zero-based index, shifting later rows up.
func (c *Client) DeleteRow(ctx context.Context, index int64) error {
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:         c.sheetID,
					Dimension:       "ROWS",
					StartIndex:      index,
					EndIndex:        index + 1,
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}

	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: delete row %d: %w", index, err)
	}
	return nil
}
