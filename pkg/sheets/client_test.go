package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/noah-isme/kiosk-attendance-api/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), config.MirrorConfig{SpreadsheetID: "sheet-1", SheetName: "Asistencias"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return c
}

func TestNewRequiresSpreadsheet(t *testing.T) {
	_, err := New(context.Background(), config.MirrorConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.URL.Path, "/v4/spreadsheets/sheet-1/values/")
		_, _ = w.Write([]byte(`{"range":"Asistencias!A1:D2","values":[["ID","Nombre","Grupo","Fecha"],["123","Ana","5A","08:00:00 01/03/2024"]]}`))
	})

	rows, err := c.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"123", "Ana", "5A", "08:00:00 01/03/2024"}, rows[1])
}

func TestClearAndAppend(t *testing.T) {
	var calls []string
	var appended map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, ":append") {
			assert.Equal(t, "RAW", r.URL.Query().Get("valueInputOption"))
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &appended))
		}
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, c.ClearData(context.Background()))
	require.NoError(t, c.Append(context.Background(), [][]string{{"123", "Ana", "5A", "08:00:00 01/03/2024"}}))
	require.NoError(t, c.Append(context.Background(), nil))

	require.Len(t, calls, 2)
	assert.True(t, strings.HasSuffix(calls[0], ":clear"))
	assert.True(t, strings.HasSuffix(calls[1], ":append"))
	assert.Equal(t, []interface{}{[]interface{}{"123", "Ana", "5A", "08:00:00 01/03/2024"}}, appended["values"])
}

func TestDeleteRowSendsZeroSheetID(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v4/spreadsheets/sheet-1:batchUpdate"))
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	})

	require.NoError(t, c.DeleteRow(context.Background(), 3))
	assert.Contains(t, body, `"sheetId":0`)
	assert.Contains(t, body, `"startIndex":3`)
	assert.Contains(t, body, `"endIndex":4`)
	assert.Contains(t, body, `"dimension":"ROWS"`)
}
