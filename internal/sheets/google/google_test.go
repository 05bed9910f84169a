package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type sheetsCall struct {
	method string
	path   string
	query  string
	body   []byte
}

type fakeSheetsAPI struct {
	mu     sync.Mutex
	calls  []sheetsCall
	failOn string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, sheetsCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: body})
	f.mu.Unlock()

	if f.failOn != "" && r.Method == f.failOn {
		http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{}`))
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithHTTPClient(srv.Client()),
		goption.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-123", "My Ledger", nil)
}

func TestReplaceWritesThenClearsTail(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)

	txs := []core.Transaction{
		{ID: "b", Type: core.Expense, Amount: 250, Category: "Food", Date: "2024-03-05", Note: "=SUM(A1)"},
		{ID: "a", Type: core.Income, Amount: 1000, Category: "Salary", Date: "2024-03-01"},
	}
	require.NoError(t, c.Replace(context.Background(), txs))

	require.Len(t, api.calls, 2)

	update := api.calls[0]
	assert.Equal(t, http.MethodPut, update.method)
	assert.Contains(t, update.path, "/v4/spreadsheets/sheet-123/values/")
	assert.Contains(t, update.path, "'My Ledger'!A1:F3")
	assert.Contains(t, update.query, "valueInputOption=RAW")

	var vr gsheet.ValueRange
	require.NoError(t, json.Unmarshal(update.body, &vr))
	require.Len(t, vr.Values, 3)
	assert.Equal(t, "ID", vr.Values[0][0])
	assert.Equal(t, "b", vr.Values[1][0])
	assert.Equal(t, "=SUM(A1)", vr.Values[1][5])
	assert.Equal(t, 1000.0, vr.Values[2][4])

	clear := api.calls[1]
	assert.Equal(t, http.MethodPost, clear.method)
	assert.True(t, strings.HasSuffix(clear.path, "'My Ledger'!A4:F:clear"), clear.path)
}

func TestReplaceEmptyLedgerKeepsHeader(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)

	require.NoError(t, c.Replace(context.Background(), nil))
	require.Len(t, api.calls, 2)
	assert.Contains(t, api.calls[0].path, "A1:F1")
	assert.True(t, strings.HasSuffix(api.calls[1].path, "A2:F:clear"))
}

func TestReplaceStopsOnWriteError(t *testing.T) {
	api := &fakeSheetsAPI{failOn: http.MethodPut}
	c := newTestClient(t, api)

	err := c.Replace(context.Background(), []core.Transaction{{ID: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write rows")
	assert.Len(t, api.calls, 1, "tail must not be cleared after a failed write")
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	require.EqualError(t, err, "missing spreadsheet id")

	_, err = New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	require.ErrorContains(t, err, "missing service account credentials")

	_, err = New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/does/not/exist.json"}, nil)
	require.ErrorContains(t, err, "read service account file")
}

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 6: "F", 26: "Z", 27: "AA", 52: "AZ", 53: "BA"}
	for n, want := range tests {
		assert.Equal(t, want, columnName(n), "column %d", n)
	}
}

func TestA1QuotesSheetName(t *testing.T) {
	c := NewWithService(nil, "id", "Bob's sheet", nil)
	assert.Equal(t, "'Bob''s sheet'!A1", c.a1("A1"))
}
