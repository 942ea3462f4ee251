package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kirana/internal/core"
	"kirana/internal/store/memory"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func jan(day int) time.Time {
	return time.Date(2026, time.January, day, 0, 0, 0, 0, time.UTC)
}

func TestAppendToFreshMonth(t *testing.T) {
	svc := NewLedgerService(memory.New())
	ctx := context.Background()

	// No December 2025 record: inherited balance is zero.
	rec, err := svc.Append(ctx, core.Purchase, core.Entry{Date: jan(15), Amount: d("2500")})
	if err != nil {
		t.Fatalf("append purchase error: %v", err)
	}
	if !rec.TotalExpense.Equal(d("2500")) {
		t.Errorf("TotalExpense = %s, want 2500", rec.TotalExpense)
	}
	if !rec.Balance.Equal(d("2500")) {
		t.Errorf("Balance = %s, want 2500", rec.Balance)
	}

	rec, err = svc.Append(ctx, core.Payment, core.Entry{Date: jan(20), Amount: d("1000")})
	if err != nil {
		t.Fatalf("append payment error: %v", err)
	}
	if !rec.TotalExpense.Equal(d("2500")) {
		t.Errorf("TotalExpense after payment = %s, want 2500", rec.TotalExpense)
	}
	if !rec.Balance.Equal(d("1500")) {
		t.Errorf("Balance after payment = %s, want 1500", rec.Balance)
	}
}

func TestJanuaryInheritsDecemberBalance(t *testing.T) {
	st := memory.New()
	svc := NewLedgerService(st)
	ctx := context.Background()

	// Seed December 2025 ending at balance 800.
	_, err := svc.Append(ctx, core.Purchase, core.Entry{
		Date:   time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC),
		Amount: d("800"),
	})
	if err != nil {
		t.Fatalf("seed december error: %v", err)
	}

	inherited, err := svc.InheritedBalance(ctx, core.MonthKey{Year: 2026, Month: time.January})
	if err != nil {
		t.Fatalf("inherited balance error: %v", err)
	}
	if !inherited.Equal(d("800")) {
		t.Errorf("inherited = %s, want 800", inherited)
	}

	rec, err := svc.Append(ctx, core.Purchase, core.Entry{Date: jan(5), Amount: d("500")})
	if err != nil {
		t.Fatalf("append error: %v", err)
	}
	// 800 + 500 - 0
	if !rec.Balance.Equal(d("1300")) {
		t.Errorf("Balance = %s, want 1300", rec.Balance)
	}
}

func TestInheritedBalanceAbsentMonth(t *testing.T) {
	svc := NewLedgerService(memory.New())

	inherited, err := svc.InheritedBalance(context.Background(), core.MonthKey{Year: 2026, Month: time.July})
	if err != nil {
		t.Fatalf("inherited balance error: %v", err)
	}
	if !inherited.Equal(decimal.Zero) {
		t.Errorf("inherited = %s, want 0", inherited)
	}
}

func TestBalanceInvariantMixedOrder(t *testing.T) {
	svc := NewLedgerService(memory.New())
	ctx := context.Background()

	appends := []struct {
		kind   core.EntryKind
		amount string
	}{
		{core.Payment, "100"},
		{core.Purchase, "250.50"},
		{core.Purchase, "49.50"},
		{core.Payment, "75"},
		{core.Purchase, "500"},
	}

	var last core.MonthRecord
	for i, a := range appends {
		rec, err := svc.Append(ctx, a.kind, core.Entry{Date: jan(i + 1), Amount: d(a.amount)})
		if err != nil {
			t.Fatalf("append %d error: %v", i, err)
		}
		last = rec
	}

	// 0 + (250.50 + 49.50 + 500) - (100 + 75)
	if !last.Balance.Equal(d("625")) {
		t.Errorf("Balance = %s, want 625", last.Balance)
	}
	if !last.TotalExpense.Equal(d("800")) {
		t.Errorf("TotalExpense = %s, want 800", last.TotalExpense)
	}
}

func TestEnsureMonthIdempotent(t *testing.T) {
	svc := NewLedgerService(memory.New())
	ctx := context.Background()
	key := core.MonthKey{Year: 2026, Month: time.May}

	first, err := svc.EnsureMonth(ctx, key)
	if err != nil {
		t.Fatalf("first ensure error: %v", err)
	}
	second, err := svc.EnsureMonth(ctx, key)
	if err != nil {
		t.Fatalf("second ensure error: %v", err)
	}
	if first.Month != second.Month || first.Year != second.Year {
		t.Error("EnsureMonth returned different records")
	}
}

func TestEnsureMonthConcurrentCreation(t *testing.T) {
	st := memory.New()
	svc := NewLedgerService(st)
	key := core.MonthKey{Year: 2026, Month: time.June}

	const callers = 8
	var wg sync.WaitGroup
	records := make([]core.MonthRecord, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = svc.EnsureMonth(context.Background(), key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error: %v", i, errs[i])
		}
		if records[i].Month != "June" || records[i].Year != 2026 {
			t.Errorf("caller %d got %s %d", i, records[i].Month, records[i].Year)
		}
	}

	// Exactly one record persisted.
	months, err := st.ListMonths(context.Background(), 2026)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(months) != 1 {
		t.Fatalf("persisted %d records, want 1", len(months))
	}
}

func TestAppendRejectsInvalidInput(t *testing.T) {
	svc := NewLedgerService(memory.New())
	ctx := context.Background()

	if _, err := svc.Append(ctx, core.Purchase, core.Entry{Date: jan(1), Amount: d("0")}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Append(ctx, core.Purchase, core.Entry{Amount: d("10")}); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("zero date: got %v, want ErrInvalidDate", err)
	}
	if _, err := svc.Append(ctx, core.EntryKind(42), core.Entry{Date: jan(1), Amount: d("10")}); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("bad kind: got %v, want ErrInvalidKind", err)
	}

	// Nothing may reach storage on validation failure.
	months, _ := svc.Months(ctx, 2026)
	if len(months) != 0 {
		t.Errorf("invalid appends persisted %d records", len(months))
	}
}

func TestRecordTransaction(t *testing.T) {
	svc := NewLedgerService(memory.New())
	ctx := context.Background()

	kind, rec, err := svc.RecordTransaction(ctx, TransactionRequest{
		Date:        "2026-01-15",
		Type:        "purchase",
		Amount:      "2,500",
		Description: "weekly groceries",
	})
	if err != nil {
		t.Fatalf("record error: %v", err)
	}
	if kind != core.Purchase {
		t.Errorf("kind = %v, want Purchase", kind)
	}
	if !rec.Balance.Equal(d("2500")) {
		t.Errorf("Balance = %s, want 2500", rec.Balance)
	}
	if len(rec.Purchases) != 1 || rec.Purchases[0].Description != "weekly groceries" {
		t.Error("description not persisted")
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	svc := NewLedgerService(memory.New())
	ctx := context.Background()

	tests := []struct {
		name string
		req  TransactionRequest
		want error
	}{
		{"missing date", TransactionRequest{Type: "purchase", Amount: "10"}, core.ErrMissingField},
		{"missing type", TransactionRequest{Date: "2026-01-15", Amount: "10"}, core.ErrMissingField},
		{"missing amount", TransactionRequest{Date: "2026-01-15", Type: "purchase"}, core.ErrMissingField},
		{"bad kind", TransactionRequest{Date: "2026-01-15", Type: "refund", Amount: "10"}, core.ErrInvalidKind},
		{"bad date", TransactionRequest{Date: "15/1/2026", Type: "purchase", Amount: "10"}, core.ErrInvalidDate},
		{"bad amount", TransactionRequest{Date: "2026-01-15", Type: "purchase", Amount: "-10"}, core.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.RecordTransaction(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDue(t *testing.T) {
	svc := NewLedgerService(memory.New())
	ctx := context.Background()
	key := core.MonthKey{Year: 2026, Month: time.January}

	sum, err := svc.Due(ctx, key)
	if err != nil {
		t.Fatalf("due on empty store error: %v", err)
	}
	if sum.Found {
		t.Error("Found = true for absent month")
	}

	if _, err := svc.Append(ctx, core.Purchase, core.Entry{Date: jan(15), Amount: d("2500")}); err != nil {
		t.Fatalf("append error: %v", err)
	}
	sum, err = svc.Due(ctx, key)
	if err != nil {
		t.Fatalf("due error: %v", err)
	}
	if !sum.Found {
		t.Fatal("Found = false after append")
	}
	if !sum.Record.Balance.Equal(d("2500")) {
		t.Errorf("Balance = %s, want 2500", sum.Record.Balance)
	}
	if !sum.PreviousBalance.Equal(decimal.Zero) {
		t.Errorf("PreviousBalance = %s, want 0", sum.PreviousBalance)
	}
}
