package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kharcha/internal/core"
	"kharcha/internal/log"
	"kharcha/internal/metrics"
	"kharcha/internal/services"
	"kharcha/internal/slot/memory"
	"kharcha/internal/store"
	"kharcha/internal/view"
)

type testEnv struct {
	srv  *Server
	slot *memory.Store
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	slot := memory.New()
	n := 0
	ids := core.IDGeneratorFunc(func() string {
		n++
		return "tx" + strconv.Itoa(n)
	})
	st, err := store.Open(context.Background(), slot, "", store.WithIDGenerator(ids))
	require.NoError(t, err)

	quiet := log.New(log.Config{Component: log.ComponentHTTP, Output: io.Discard})
	ledger := services.NewLedgerService(st, services.WithLogger(quiet))

	srv := NewServer(":0", ledger, append([]Option{WithLogger(quiet)}, opts...)...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, slot: slot}
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) postJSON(t *testing.T, body string) *httptest.ResponseRecorder {
	return e.do(t, http.MethodPost, "/api/transactions", "application/json", body)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestCreateTransactionJSON(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postJSON(t, `{"type":"expense","amount":10.005,"category":"  Food ","date":"2024-03-05","note":" tea "}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "/api/transactions/tx1", rr.Header().Get("Location"))

	tx := decode[core.Transaction](t, rr)
	assert.Equal(t, core.Transaction{ID: "tx1", Type: core.Expense, Amount: 10.01, Category: "Food", Date: "2024-03-05", Note: "tea"}, tx)

	stored, err := env.slot.Get(context.Background(), store.DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, string(stored), `"id":"tx1"`)
}

func TestCreateTransactionForm(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/transactions", "application/x-www-form-urlencoded",
		"type=income&amount=%E2%82%B91%2C250.50&category=Salary&date=2024-03-01")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	tx := decode[core.Transaction](t, rr)
	assert.Equal(t, core.Income, tx.Type)
	assert.Equal(t, 1250.5, tx.Amount)
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantMsg   string
	}{
		{name: "empty body", body: ``, wantField: "date", wantMsg: "Please select a date."},
		{name: "bad date before bad amount", body: `{"date":"05/03/2024","amount":"abc"}`, wantField: "date", wantMsg: "Please select a date."},
		{name: "unparseable amount", body: `{"date":"2024-03-05","amount":"abc","category":"Food"}`, wantField: "amount", wantMsg: "Enter a valid amount (> 0)."},
		{name: "zero amount", body: `{"date":"2024-03-05","amount":0,"category":"Food"}`, wantField: "amount", wantMsg: "Enter a valid amount (> 0)."},
		{name: "negative amount", body: `{"date":"2024-03-05","amount":-5,"category":"Food"}`, wantField: "amount", wantMsg: "Enter a valid amount (> 0)."},
		{name: "blank category", body: `{"date":"2024-03-05","amount":5,"category":"   "}`, wantField: "category", wantMsg: "Choose a category."},
		{name: "unknown type", body: `{"date":"2024-03-05","amount":5,"category":"Food","type":"transfer"}`, wantField: "type", wantMsg: "Choose income or expense."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := env.postJSON(t, tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())

			body := decode[errorBody](t, rr)
			assert.Equal(t, tt.wantField, body.Field)
			assert.Equal(t, tt.wantMsg, body.Error)

			_, err := env.slot.Get(context.Background(), store.DefaultKey)
			assert.Error(t, err, "nothing should be persisted")
		})
	}
}

func TestCreateTransactionMalformedJSON(t *testing.T) {
	env := newTestEnv(t)
	rr := env.postJSON(t, `{"date":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateTransactionWriteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.slot.PutErr = errors.New("quota exceeded")

	rr := env.postJSON(t, `{"date":"2024-03-05","amount":5,"category":"Food"}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "quota", "internal errors are not leaked")

	list := decode[view.Projection](t, env.do(t, http.MethodGet, "/api/transactions", "", ""))
	assert.Empty(t, list.Rows)
}

func seed(t *testing.T, env *testEnv) {
	t.Helper()
	for _, body := range []string{
		`{"type":"income","amount":1000,"category":"Salary","date":"2024-03-01"}`,
		`{"type":"expense","amount":250,"category":"Food","date":"2024-03-05","note":"Groceries at market"}`,
		`{"type":"expense","amount":100,"category":"Rent","date":"2024-02-01"}`,
	} {
		require.Equal(t, http.StatusCreated, env.postJSON(t, body).Code)
	}
}

func TestListTransactions(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	t.Run("unfiltered newest first", func(t *testing.T) {
		p := decode[view.Projection](t, env.do(t, http.MethodGet, "/api/transactions", "", ""))
		require.Len(t, p.Rows, 3)
		assert.Equal(t, []string{"tx3", "tx2", "tx1"}, []string{p.Rows[0].ID, p.Rows[1].ID, p.Rows[2].ID})
		assert.Equal(t, core.Totals{Income: 1000, Expense: 350, Balance: 650}, p.Totals)
		assert.Equal(t, []string{"2024-03", "2024-02"}, p.Months)
		assert.Equal(t, view.All, p.SelectedMonth)
	})

	t.Run("filters combine", func(t *testing.T) {
		p := decode[view.Projection](t, env.do(t, http.MethodGet, "/api/transactions?q=MARKET&month=2024-03&type=expense", "", ""))
		require.Len(t, p.Rows, 1)
		assert.Equal(t, "tx2", p.Rows[0].ID)
		assert.Equal(t, 650.0, p.Totals.Balance, "totals ignore filters")
	})

	t.Run("unknown month falls back to all", func(t *testing.T) {
		p := decode[view.Projection](t, env.do(t, http.MethodGet, "/api/transactions?month=1999-01", "", ""))
		assert.Len(t, p.Rows, 3)
		assert.Equal(t, view.All, p.SelectedMonth)
	})
}

func TestGetDeleteAndClear(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env)

	rr := env.do(t, http.MethodGet, "/api/transactions/tx2", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Food", decode[core.Transaction](t, rr).Category)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/transactions/tx2", "", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/transactions/tx2", "", "").Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/transactions/nope", "", "").Code)

	summary := decode[core.Totals](t, env.do(t, http.MethodGet, "/api/summary", "", ""))
	assert.Equal(t, core.Totals{Income: 1000, Expense: 100, Balance: 900}, summary)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/transactions", "", "").Code)
	summary = decode[core.Totals](t, env.do(t, http.MethodGet, "/api/summary", "", ""))
	assert.Equal(t, core.Totals{}, summary)

	months := decode[map[string][]string](t, env.do(t, http.MethodGet, "/api/months", "", ""))
	assert.Empty(t, months["months"])

	stored, err := env.slot.Get(context.Background(), store.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(stored))
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPut, "/api/transactions", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRateLimitAppliesToMutations(t *testing.T) {
	env := newTestEnv(t, WithRateLimit(2))
	body := `{"date":"2024-03-05","amount":5,"category":"Food"}`

	assert.Equal(t, http.StatusCreated, env.postJSON(t, body).Code)
	assert.Equal(t, http.StatusCreated, env.postJSON(t, body).Code)

	rr := env.postJSON(t, body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/transactions", "", "").Code)
}

func TestResponseHeaders(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/summary", "", "")
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/readyz", "", "").Code)

	failing := newTestEnv(t, WithReadiness(func(context.Context) error { return errors.New("disk gone") }))
	rr := failing.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "disk gone")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, WithMetrics(metrics.New()))
	env.do(t, http.MethodGet, "/api/summary", "", "")

	rr := env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `kharcha_requests_total{code="200",method="GET",url="/api/summary"} 1`)
}
