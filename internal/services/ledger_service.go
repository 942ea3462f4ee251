// Package services holds the ledger engine: month resolution, balance
// rollover, and the append-then-recompute write path over the document
// store.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"kirana/internal/core"
	"kirana/internal/store"
)

// LedgerService owns all reads and writes of month records. It performs no
// locking of its own; it relies on the store's per-document atomic append
// and set primitives, and resolves creation races by re-reading the winner.
type LedgerService struct {
	store store.DocumentStore
}

func NewLedgerService(st store.DocumentStore) *LedgerService {
	return &LedgerService{store: st}
}

// TransactionRequest is the canonical transaction shape, identical for the
// HTTP API and the chat client. Amount arrives as its raw token so both
// boundaries share one parser.
type TransactionRequest struct {
	Date        string
	Type        string
	Amount      string
	Description string
}

// InheritedBalance returns the previous month's rollover balance, or zero
// when that month has no record. January looks at December of the prior
// year.
func (s *LedgerService) InheritedBalance(ctx context.Context, key core.MonthKey) (decimal.Decimal, error) {
	prev := key.Previous()
	rec, err := s.store.FindMonth(ctx, prev.Year, prev.Name())
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("inherited balance %s %d: %w", prev.Name(), prev.Year, err)
	}
	return rec.Balance, nil
}

// EnsureMonth fetches the month record, creating the skeleton on first use
// with the inherited balance as its starting point. Creation is advisory:
// if a concurrent caller inserts first, this one discards its attempt and
// re-reads the winner's record.
func (s *LedgerService) EnsureMonth(ctx context.Context, key core.MonthKey) (core.MonthRecord, error) {
	rec, err := s.store.FindMonth(ctx, key.Year, key.Name())
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return core.MonthRecord{}, fmt.Errorf("find month %s %d: %w", key.Name(), key.Year, err)
	}

	inherited, err := s.InheritedBalance(ctx, key)
	if err != nil {
		return core.MonthRecord{}, err
	}
	skeleton := core.NewMonthRecord(key, inherited)

	if err := s.store.InsertMonth(ctx, skeleton); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			slog.InfoContext(ctx, "Lost month creation race, re-reading winner",
				"month", key.Name(), "year", key.Year)
			return s.store.FindMonth(ctx, key.Year, key.Name())
		}
		return core.MonthRecord{}, fmt.Errorf("insert month %s %d: %w", key.Name(), key.Year, err)
	}

	slog.InfoContext(ctx, "Month record created",
		"month", key.Name(), "year", key.Year,
		"inherited_balance", inherited.String())
	return skeleton, nil
}

// Append records one entry and brings the cached totals back in line with
// the entry arrays. The append and the totals write are each atomic, but a
// reader between them may see totals lagging the arrays by one entry; the
// window closes before Append returns.
func (s *LedgerService) Append(ctx context.Context, kind core.EntryKind, e core.Entry) (core.MonthRecord, error) {
	if kind != core.Purchase && kind != core.Payment {
		return core.MonthRecord{}, core.ErrInvalidKind
	}
	if err := e.Validate(); err != nil {
		return core.MonthRecord{}, err
	}

	key := core.KeyForDate(e.Date)
	if _, err := s.EnsureMonth(ctx, key); err != nil {
		return core.MonthRecord{}, err
	}

	if err := s.store.AppendEntry(ctx, key.Year, key.Name(), kind, e); err != nil {
		return core.MonthRecord{}, fmt.Errorf("append %s: %w", kind, err)
	}

	rec, err := s.store.FindMonth(ctx, key.Year, key.Name())
	if err != nil {
		return core.MonthRecord{}, fmt.Errorf("re-read month %s %d: %w", key.Name(), key.Year, err)
	}
	inherited, err := s.InheritedBalance(ctx, key)
	if err != nil {
		return core.MonthRecord{}, err
	}
	rec = core.Recompute(rec, inherited)

	if err := s.store.SetTotals(ctx, key.Year, key.Name(), rec.TotalExpense, rec.Balance); err != nil {
		return core.MonthRecord{}, fmt.Errorf("set totals: %w", err)
	}

	slog.InfoContext(ctx, "Entry recorded",
		"kind", kind.String(),
		"amount", e.Amount.String(),
		"date", e.Date.Format(core.ISODate),
		"month", key.Name(), "year", key.Year,
		"balance", rec.Balance.String())
	return rec, nil
}

// RecordTransaction validates and records the canonical transaction shape.
func (s *LedgerService) RecordTransaction(ctx context.Context, req TransactionRequest) (core.EntryKind, core.MonthRecord, error) {
	if req.Date == "" {
		return 0, core.MonthRecord{}, fmt.Errorf("date: %w", core.ErrMissingField)
	}
	if req.Type == "" {
		return 0, core.MonthRecord{}, fmt.Errorf("type: %w", core.ErrMissingField)
	}
	if req.Amount == "" {
		return 0, core.MonthRecord{}, fmt.Errorf("amount: %w", core.ErrMissingField)
	}

	kind, err := core.ParseEntryKind(req.Type)
	if err != nil {
		return 0, core.MonthRecord{}, err
	}
	date, err := core.ParseISODate(req.Date)
	if err != nil {
		return 0, core.MonthRecord{}, err
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return 0, core.MonthRecord{}, err
	}

	rec, err := s.Append(ctx, kind, core.Entry{
		Date:        date,
		Amount:      amount,
		Description: req.Description,
	})
	return kind, rec, err
}

// DueSummary is the read-side aggregate for the due report: the month's
// stored record plus the rollover it started from. Read paths use stored
// totals as-is, without recomputation.
type DueSummary struct {
	Key             core.MonthKey
	Record          core.MonthRecord
	Found           bool
	PreviousBalance decimal.Decimal
}

func (s *LedgerService) Due(ctx context.Context, key core.MonthKey) (DueSummary, error) {
	sum := DueSummary{Key: key}

	rec, err := s.store.FindMonth(ctx, key.Year, key.Name())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return sum, fmt.Errorf("find month %s %d: %w", key.Name(), key.Year, err)
	}
	if err == nil {
		sum.Record = rec
		sum.Found = true
	}

	prev, err := s.InheritedBalance(ctx, key)
	if err != nil {
		return sum, err
	}
	sum.PreviousBalance = prev
	return sum, nil
}

// Months returns every stored month record for a year, for the chart and
// listing read paths.
func (s *LedgerService) Months(ctx context.Context, year int) ([]core.MonthRecord, error) {
	return s.store.ListMonths(ctx, year)
}

// Years returns the years with any stored data.
func (s *LedgerService) Years(ctx context.Context) ([]int, error) {
	return s.store.ListYears(ctx)
}
