package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kirana/internal/core"
	applog "kirana/internal/log"
	"kirana/internal/services"
)

type entryJSON struct {
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

type monthJSON struct {
	Month         string      `json:"month"`
	Year          int         `json:"year"`
	DailyExpenses []entryJSON `json:"daily_expenses"`
	Credits       []entryJSON `json:"credits"`
	TotalExpense  float64     `json:"total_expense"`
	Balance       float64     `json:"balance"`
}

func toEntryJSON(e core.Entry) entryJSON {
	return entryJSON{
		Date:        e.Date.Format(core.ISODate),
		Amount:      e.Amount.InexactFloat64(),
		Description: e.Description,
	}
}

func toMonthJSON(rec core.MonthRecord) monthJSON {
	out := monthJSON{
		Month:         rec.Month,
		Year:          rec.Year,
		DailyExpenses: []entryJSON{},
		Credits:       []entryJSON{},
		TotalExpense:  rec.TotalExpense.InexactFloat64(),
		Balance:       rec.Balance.InexactFloat64(),
	}
	for _, e := range rec.Purchases {
		out.DailyExpenses = append(out.DailyExpenses, toEntryJSON(e))
	}
	for _, e := range rec.Payments {
		out.Credits = append(out.Credits, toEntryJSON(e))
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.ledger.Years(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List years failed", applog.FieldError, err)
		writeLedgerError(w, err)
		return
	}
	if years == nil {
		years = []int{}
	}
	writeJSON(w, http.StatusOK, map[string][]int{"years": years})
}

// handleMonths is the chart read path: every stored month of a year, with
// stored totals as-is.
func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	records, err := s.ledger.Months(r.Context(), year)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List months failed", applog.FieldError, err, applog.FieldYear, year)
		writeLedgerError(w, err)
		return
	}
	out := make([]monthJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, toMonthJSON(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDue reports the due summary for the requested month, defaulting to
// the current one.
func (s *Server) handleDue(w http.ResponseWriter, r *http.Request) {
	key := core.KeyForDate(time.Now())
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			key.Year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			key.Month = time.Month(m)
		}
	}

	sum, err := s.ledger.Due(r.Context(), key)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Due summary failed", applog.FieldError, err,
			applog.FieldMonth, key.Name(), applog.FieldYear, key.Year)
		writeLedgerError(w, err)
		return
	}

	resp := map[string]any{
		"month":            key.Name(),
		"year":             key.Year,
		"previous_balance": sum.PreviousBalance.InexactFloat64(),
		"has_activity":     sum.Found,
	}
	if sum.Found {
		resp["balance"] = sum.Record.Balance.InexactFloat64()
		resp["total_purchases"] = sum.Record.TotalExpense.InexactFloat64()
		resp["total_payments"] = sum.Record.TotalPayments().InexactFloat64()
	}
	writeJSON(w, http.StatusOK, resp)
}

type transactionRequest struct {
	Date        string      `json:"date"`
	Type        string      `json:"type"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, rec, err := s.ledger.RecordTransaction(r.Context(), services.TransactionRequest{
		Date:        req.Date,
		Type:        req.Type,
		Amount:      req.Amount.String(),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"recorded": kind.String(),
		"month":    toMonthJSON(rec),
	})
}

// handleTelegramWebhook accepts updates pushed by Telegram. The secret
// header must match; updates for other chats or non-command text are
// acknowledged and dropped.
func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.telegram.VerifySecret(r.Header.Get("X-Telegram-Bot-Api-Secret-Token")) {
		s.logger.Warn("Webhook call with invalid secret token")
		writeError(w, http.StatusUnauthorized, "invalid secret token")
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid update payload")
		return
	}

	responded := s.telegram.HandleUpdate(r.Context(), update)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "responded": responded})
}
