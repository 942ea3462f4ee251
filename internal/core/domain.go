package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Purchase EntryKind = iota
	Payment
)

type (
	// EntryKind discriminates the two transaction arrays of a month record.
	EntryKind int

	// MonthKey identifies the partition a transaction belongs to.
	MonthKey struct {
		Year  int
		Month time.Month
	}

	// Entry is a single dated monetary transaction.
	Entry struct {
		Date        time.Time
		Amount      decimal.Decimal
		Description string
	}

	// MonthRecord is the per-(year, month) aggregate. TotalExpense and
	// Balance are cached values derived from the entry arrays plus the
	// previous month's balance; Recompute is the source of truth for both.
	MonthRecord struct {
		Year         int
		Month        string
		Purchases    []Entry
		Payments     []Entry
		TotalExpense decimal.Decimal
		Balance      decimal.Decimal
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrMissingField  = errors.New("missing field")
)

func (k EntryKind) String() string {
	switch k {
	case Purchase:
		return "purchase"
	case Payment:
		return "payment"
	}
	return "unknown"
}

// ParseEntryKind maps the wire-level type field to an EntryKind.
func ParseEntryKind(s string) (EntryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "purchase":
		return Purchase, nil
	case "payment":
		return Payment, nil
	}
	return 0, ErrInvalidKind
}

func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if e.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// KeyForDate maps a calendar date to its owning month partition.
func KeyForDate(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Name returns the canonical month name ("January" .. "December").
func (k MonthKey) Name() string {
	return k.Month.String()
}

// Previous returns the calendar-adjacent month, decrementing the year when
// wrapping from January to December.
func (k MonthKey) Previous() MonthKey {
	if k.Month == time.January {
		return MonthKey{Year: k.Year - 1, Month: time.December}
	}
	return MonthKey{Year: k.Year, Month: k.Month - 1}
}

// NewMonthRecord builds the skeleton for a month with no activity yet. The
// balance starts at the inherited rollover from the previous month.
func NewMonthRecord(key MonthKey, inherited decimal.Decimal) MonthRecord {
	return MonthRecord{
		Year:         key.Year,
		Month:        key.Name(),
		Purchases:    []Entry{},
		Payments:     []Entry{},
		TotalExpense: decimal.Zero,
		Balance:      inherited,
	}
}

// Recompute derives the cached totals from the entry arrays:
//
//	total_expense = Σ purchases
//	balance       = inherited + total_expense − Σ payments
//
// It is pure and idempotent; callers persist the result after any mutation
// of the entry arrays.
func Recompute(r MonthRecord, inherited decimal.Decimal) MonthRecord {
	total := decimal.Zero
	for _, e := range r.Purchases {
		total = total.Add(e.Amount)
	}
	r.TotalExpense = total
	r.Balance = inherited.Add(total).Sub(r.TotalPayments())
	return r
}

// TotalPayments sums the payment array. Unlike TotalExpense this is not
// cached on the record; the original schema never stored it.
func (r MonthRecord) TotalPayments() decimal.Decimal {
	paid := decimal.Zero
	for _, e := range r.Payments {
		paid = paid.Add(e.Amount)
	}
	return paid
}
