package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/currency"
	"github.com/centavoapp/centavo/internal/dashboard"
	"github.com/centavoapp/centavo/internal/importer"
	"github.com/centavoapp/centavo/internal/jobs/inmemory"
	"github.com/centavoapp/centavo/internal/ledger"
	"github.com/centavoapp/centavo/internal/scheduler"
	"github.com/centavoapp/centavo/internal/store/memory"
)

type testServer struct {
	srv   *httptest.Server
	owner uuid.UUID
	queue *inmemory.Queue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st := memory.New()
	rates, err := currency.NewTable("USD", map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"NIO": decimal.RequireFromString("0.027322"),
	})
	if err != nil {
		t.Fatal(err)
	}

	log := zerolog.Nop()
	ledgerSvc := ledger.NewService(st, log)
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, jobStore)

	worker := importer.NewWorker(ledgerSvc, st, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = queue.Start(ctx, worker.Handler())
	}()

	handler := NewRouter(Deps{
		Store:     st,
		Rates:     rates,
		Ledger:    ledgerSvc,
		Dashboard: dashboard.NewService(st, rates, log),
		Scheduler: scheduler.New(st, log),
		Publisher: queue,
		JobStore:  jobStore,
		Log:       log,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = queue.Close() })

	return &testServer{srv: srv, owner: uuid.New(), queue: queue}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Owner-ID", ts.owner.String())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func (ts *testServer) createAccount(t *testing.T, name, cur string, balance int64) uuid.UUID {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/accounts", map[string]interface{}{
		"name":            name,
		"category":        "asset",
		"currency":        cur,
		"initial_balance": balance,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account %s: status %d", name, resp.StatusCode)
	}
	var account struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, resp, &account)
	return account.ID
}

func TestOwnerHeaderRequired(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/accounts", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no owner header: status %d, want 401", resp.StatusCode)
	}

	req.Header.Set("X-Owner-ID", "not-a-uuid")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad owner header: status %d, want 401", resp.StatusCode)
	}
}

func TestHealthNeedsNoOwner(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: status %d", resp.StatusCode)
	}
}

func TestTransactionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	checking := ts.createAccount(t, "Checking", "NIO", 1000)
	savings := ts.createAccount(t, "Savings", "NIO", 0)

	resp := ts.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{
		"kind":            "transfer",
		"amount":          200,
		"from_account_id": checking,
		"to_account_id":   savings,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post transfer: status %d", resp.StatusCode)
	}
	var tx struct {
		ID       uuid.UUID `json:"id"`
		Currency string    `json:"currency"`
	}
	decode(t, resp, &tx)
	if tx.Currency != "NIO" {
		t.Errorf("transfer currency = %q", tx.Currency)
	}

	// Unknown accounts map to 404, validation problems to 400.
	resp = ts.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{
		"kind":            "transfer",
		"amount":          10,
		"from_account_id": checking,
		"to_account_id":   uuid.New(),
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("ghost account: status %d, want 404", resp.StatusCode)
	}
	resp = ts.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{
		"kind":            "transfer",
		"amount":          -5,
		"from_account_id": checking,
		"to_account_id":   savings,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative amount: status %d, want 400", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/transactions/%s", tx.ID), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: status %d", resp.StatusCode)
	}

	// Balances returned to their initial values.
	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/accounts/%s", checking), nil)
	var account struct {
		CurrentBalance decimal.Decimal `json:"current_balance"`
	}
	decode(t, resp, &account)
	if !account.CurrentBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("checking balance = %s, want 1000", account.CurrentBalance)
	}
}

func TestDashboardOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	checking := ts.createAccount(t, "Checking", "NIO", 1000)

	resp := ts.do(t, http.MethodPost, "/api/transactions", map[string]interface{}{
		"kind":            "expense",
		"amount":          100,
		"from_account_id": checking,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post expense: status %d", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/api/dashboard?currency=NIO", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: status %d", resp.StatusCode)
	}
	var snap struct {
		Currency    string          `json:"currency"`
		TotalAssets decimal.Decimal `json:"total_assets"`
	}
	decode(t, resp, &snap)
	if snap.Currency != "NIO" || !snap.TotalAssets.Equal(decimal.NewFromInt(900)) {
		t.Errorf("snapshot = %+v", snap)
	}

	resp = ts.do(t, http.MethodGet, "/api/dashboard?currency=XXX", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unsupported currency: status %d, want 400", resp.StatusCode)
	}
}

func TestSchedulerEndpointsOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/scheduler/run", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run: status %d", resp.StatusCode)
	}
	var summary struct {
		Due int `json:"due"`
	}
	decode(t, resp, &summary)
	if summary.Due != 0 {
		t.Errorf("due = %d, want 0", summary.Due)
	}

	resp = ts.do(t, http.MethodGet, "/api/scheduler/status", nil)
	var status struct {
		LastRunAt *string `json:"last_run_at"`
	}
	decode(t, resp, &status)
	if status.LastRunAt == nil {
		t.Error("status missing last run")
	}
}

func TestImportOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ts.createAccount(t, "Checking", "NIO", 1000)

	csv := "date,kind,amount,account\n2026-06-01,expense,50,Checking\n"
	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/imports", strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Owner-ID", ts.owner.String())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("import: status %d", resp.StatusCode)
	}
	var accepted struct {
		JobID string `json:"job_id"`
		Rows  int    `json:"rows"`
	}
	decode(t, resp, &accepted)
	if accepted.JobID == "" || accepted.Rows != 1 {
		t.Errorf("accepted = %+v", accepted)
	}

	// Malformed CSV fails synchronously.
	req, _ = http.NewRequest(http.MethodPost, ts.srv.URL+"/api/imports", strings.NewReader("not,a header\n"))
	req.Header.Set("X-Owner-ID", ts.owner.String())
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad csv: status %d, want 400", resp.StatusCode)
	}
}
