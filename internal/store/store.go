// Package store defines the document-store contract the ledger engine
// persists through, plus the sentinel errors implementations map their
// driver failures onto.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"kirana/internal/core"
)

var (
	// ErrNotFound reports an absent month record.
	ErrNotFound = errors.New("month record not found")
	// ErrAlreadyExists reports a lost creation race: another writer
	// inserted the month first. Callers re-read the winner's record.
	ErrAlreadyExists = errors.New("month record already exists")
	// ErrUnavailable reports that the backing store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// DocumentStore is the persistence collaborator of the ledger engine. Each
// method is atomic at document granularity; multi-step sequences built on
// top of it are not transactional as a whole.
type DocumentStore interface {
	// FindMonth fetches one month record, or ErrNotFound.
	FindMonth(ctx context.Context, year int, month string) (core.MonthRecord, error)

	// InsertMonth creates a month record, or fails with ErrAlreadyExists
	// if a record for that (year, month) is already present.
	InsertMonth(ctx context.Context, rec core.MonthRecord) error

	// AppendEntry atomically appends an entry to the purchases or
	// payments array of an existing month record.
	AppendEntry(ctx context.Context, year int, month string, kind core.EntryKind, e core.Entry) error

	// SetTotals atomically overwrites the cached total_expense and
	// balance fields of an existing month record.
	SetTotals(ctx context.Context, year int, month string, totalExpense, balance decimal.Decimal) error

	// ListMonths returns every stored month record for a year.
	ListMonths(ctx context.Context, year int) ([]core.MonthRecord, error)

	// ListYears returns the years that have any stored data.
	ListYears(ctx context.Context) ([]int, error)
}
