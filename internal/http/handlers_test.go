package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kirana/internal/core"
	applog "kirana/internal/log"
	"kirana/internal/services"
	"kirana/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *services.LedgerService) {
	t.Helper()
	ledger := services.NewLedgerService(memory.New())
	logger := applog.New(applog.Config{
		Level:     slog.LevelError,
		Component: applog.ComponentHTTP,
	})
	return NewServer(":0", ledger, nil, logger), ledger
}

func seedJanuary(t *testing.T, ledger *services.LedgerService) {
	t.Helper()
	ctx := context.Background()
	if _, err := ledger.Append(ctx, core.Purchase, core.Entry{
		Date:   time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		Amount: decimal.NewFromInt(2500),
	}); err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	if _, err := ledger.Append(ctx, core.Payment, core.Entry{
		Date:   time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC),
		Amount: decimal.NewFromInt(1000),
	}); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"date":"2026-01-15","type":"purchase","amount":2500,"description":"groceries"}`
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body)
	}

	var resp struct {
		Recorded string    `json:"recorded"`
		Month    monthJSON `json:"month"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Recorded != "purchase" {
		t.Errorf("recorded = %q, want purchase", resp.Recorded)
	}
	if resp.Month.Balance != 2500 || resp.Month.TotalExpense != 2500 {
		t.Errorf("month totals = (%v, %v), want (2500, 2500)",
			resp.Month.TotalExpense, resp.Month.Balance)
	}
	if len(resp.Month.DailyExpenses) != 1 || resp.Month.DailyExpenses[0].Date != "2026-01-15" {
		t.Errorf("daily_expenses = %+v", resp.Month.DailyExpenses)
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing amount", `{"date":"2026-01-15","type":"purchase"}`, http.StatusBadRequest},
		{"missing date", `{"type":"purchase","amount":10}`, http.StatusBadRequest},
		{"bad kind", `{"date":"2026-01-15","type":"refund","amount":10}`, http.StatusUnprocessableEntity},
		{"bad date", `{"date":"15/1/2026","type":"purchase","amount":10}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"date":"2026-01-15","type":"purchase","amount":0}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"date":"2026-01-15","type":"purchase","amount":-5}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(tt.body)))
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body)
			}
		})
	}
}

func TestListMonths(t *testing.T) {
	srv, ledger := newTestServer(t)
	seedJanuary(t, ledger)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/years/2026/months", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var months []monthJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &months); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(months) != 1 || months[0].Month != "January" {
		t.Fatalf("months = %+v", months)
	}
	if months[0].Balance != 1500 {
		t.Errorf("balance = %v, want 1500", months[0].Balance)
	}
	if len(months[0].Credits) != 1 || months[0].Credits[0].Amount != 1000 {
		t.Errorf("credits = %+v", months[0].Credits)
	}
}

func TestListMonthsBadYear(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/years/banana/months", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestListYears(t *testing.T) {
	srv, ledger := newTestServer(t)
	seedJanuary(t, ledger)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/years", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp map[string][]int
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp["years"]) != 1 || resp["years"][0] != 2026 {
		t.Errorf("years = %v, want [2026]", resp["years"])
	}
}

func TestDue(t *testing.T) {
	srv, ledger := newTestServer(t)
	seedJanuary(t, ledger)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/due?year=2026&month=1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["month"] != "January" || resp["has_activity"] != true {
		t.Errorf("due = %v", resp)
	}
	if resp["balance"].(float64) != 1500 {
		t.Errorf("balance = %v, want 1500", resp["balance"])
	}
	if resp["total_purchases"].(float64) != 2500 || resp["total_payments"].(float64) != 1000 {
		t.Errorf("totals = %v / %v", resp["total_purchases"], resp["total_payments"])
	}
}

func TestDueAbsentMonth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/due?year=2031&month=7", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["has_activity"] != false {
		t.Errorf("has_activity = %v, want false", resp["has_activity"])
	}
	if _, present := resp["balance"]; present {
		t.Error("balance should be omitted for absent month")
	}
}

// With the bot disabled the webhook route is not registered at all.
func TestWebhookRouteAbsentWithoutBot(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{}")))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
