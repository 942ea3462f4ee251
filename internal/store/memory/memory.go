// Package memory implements the document store in process memory. It backs
// tests and the no-database dev mode, and mirrors the duplicate-insert
// semantics the Mongo implementation relies on.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kirana/internal/core"
	"kirana/internal/store"
)

type monthID struct {
	year  int
	month string
}

type Store struct {
	mu   sync.Mutex
	docs map[monthID]core.MonthRecord
}

func New() *Store {
	return &Store{docs: make(map[monthID]core.MonthRecord)}
}

func (s *Store) FindMonth(_ context.Context, year int, month string) (core.MonthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[monthID{year, month}]
	if !ok {
		return core.MonthRecord{}, store.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *Store) InsertMonth(_ context.Context, rec core.MonthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := monthID{rec.Year, rec.Month}
	if _, ok := s.docs[id]; ok {
		return store.ErrAlreadyExists
	}
	s.docs[id] = cloneRecord(rec)
	return nil
}

func (s *Store) AppendEntry(_ context.Context, year int, month string, kind core.EntryKind, e core.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := monthID{year, month}
	rec, ok := s.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	switch kind {
	case core.Purchase:
		rec.Purchases = append(rec.Purchases, e)
	case core.Payment:
		rec.Payments = append(rec.Payments, e)
	default:
		return core.ErrInvalidKind
	}
	s.docs[id] = rec
	return nil
}

func (s *Store) SetTotals(_ context.Context, year int, month string, totalExpense, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := monthID{year, month}
	rec, ok := s.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.TotalExpense = totalExpense
	rec.Balance = balance
	s.docs[id] = rec
	return nil
}

func (s *Store) ListMonths(_ context.Context, year int) ([]core.MonthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MonthRecord
	for id, rec := range s.docs {
		if id.year == year {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return monthIndex(out[i].Month) < monthIndex(out[j].Month)
	})
	return out, nil
}

func (s *Store) ListYears(_ context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int]bool)
	for id := range s.docs {
		seen[id.year] = true
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

func cloneRecord(rec core.MonthRecord) core.MonthRecord {
	rec.Purchases = append([]core.Entry(nil), rec.Purchases...)
	rec.Payments = append([]core.Entry(nil), rec.Payments...)
	return rec
}

func monthIndex(name string) int {
	for i := time.January; i <= time.December; i++ {
		if i.String() == name {
			return int(i)
		}
	}
	return 0
}
