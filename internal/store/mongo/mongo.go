// Package mongo implements the document store on MongoDB, using the
// original grocery schema: one collection per year, one document per month
// with daily_expenses/credits arrays and cached totals. Array appends use
// $push and totals updates use $set, so each write is atomic at document
// granularity.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"kirana/internal/core"
	"kirana/internal/store"
)

type entryDoc struct {
	Date        time.Time `bson:"date"`
	Amount      float64   `bson:"amount"`
	Description string    `bson:"description,omitempty"`
}

type monthDoc struct {
	Month         string     `bson:"month"`
	DailyExpenses []entryDoc `bson:"daily_expenses"`
	Credits       []entryDoc `bson:"credits"`
	TotalExpense  float64    `bson:"total_expense"`
	Balance       float64    `bson:"balance"`
}

type Store struct {
	client *mongo.Client
	db     *mongo.Database

	// years whose month-name unique index has been ensured
	indexed sync.Map
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(year int) *mongo.Collection {
	return s.db.Collection(strconv.Itoa(year))
}

// ensureIndex creates the unique index on the month field. The index is
// what turns a concurrent month creation into a duplicate-key failure for
// the losing writer.
func (s *Store) ensureIndex(ctx context.Context, year int) error {
	if _, done := s.indexed.Load(year); done {
		return nil
	}
	_, err := s.collection(year).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "month", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	s.indexed.Store(year, struct{}{})
	return nil
}

func (s *Store) FindMonth(ctx context.Context, year int, month string) (core.MonthRecord, error) {
	var doc monthDoc
	err := s.collection(year).FindOne(ctx, bson.M{"month": month}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.MonthRecord{}, store.ErrNotFound
	}
	if err != nil {
		return core.MonthRecord{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return toRecord(year, doc), nil
}

func (s *Store) InsertMonth(ctx context.Context, rec core.MonthRecord) error {
	if err := s.ensureIndex(ctx, rec.Year); err != nil {
		return err
	}
	_, err := s.collection(rec.Year).InsertOne(ctx, fromRecord(rec))
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) AppendEntry(ctx context.Context, year int, month string, kind core.EntryKind, e core.Entry) error {
	field, err := arrayField(kind)
	if err != nil {
		return err
	}
	res, err := s.collection(year).UpdateOne(ctx,
		bson.M{"month": month},
		bson.M{"$push": bson.M{field: fromEntry(e)}})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetTotals(ctx context.Context, year int, month string, totalExpense, balance decimal.Decimal) error {
	res, err := s.collection(year).UpdateOne(ctx,
		bson.M{"month": month},
		bson.M{"$set": bson.M{
			"total_expense": totalExpense.InexactFloat64(),
			"balance":       balance.InexactFloat64(),
		}})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListMonths(ctx context.Context, year int) ([]core.MonthRecord, error) {
	cur, err := s.collection(year).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	defer cur.Close(ctx)

	var out []core.MonthRecord
	for cur.Next(ctx) {
		var doc monthDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		out = append(out, toRecord(year, doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return out, nil
}

// ListYears reports the years with stored data. Collections are named by
// year; anything non-numeric in the database is ignored.
func (s *Store) ListYears(ctx context.Context) ([]int, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	var years []int
	for _, name := range names {
		if y, err := strconv.Atoi(name); err == nil {
			years = append(years, y)
		}
	}
	return years, nil
}

func arrayField(kind core.EntryKind) (string, error) {
	switch kind {
	case core.Purchase:
		return "daily_expenses", nil
	case core.Payment:
		return "credits", nil
	}
	return "", core.ErrInvalidKind
}

func fromEntry(e core.Entry) entryDoc {
	return entryDoc{
		Date:        e.Date,
		Amount:      e.Amount.InexactFloat64(),
		Description: e.Description,
	}
}

func toEntry(d entryDoc) core.Entry {
	return core.Entry{
		Date:        d.Date,
		Amount:      decimal.NewFromFloat(d.Amount),
		Description: d.Description,
	}
}

func fromRecord(rec core.MonthRecord) monthDoc {
	doc := monthDoc{
		Month:         rec.Month,
		DailyExpenses: []entryDoc{},
		Credits:       []entryDoc{},
		TotalExpense:  rec.TotalExpense.InexactFloat64(),
		Balance:       rec.Balance.InexactFloat64(),
	}
	for _, e := range rec.Purchases {
		doc.DailyExpenses = append(doc.DailyExpenses, fromEntry(e))
	}
	for _, e := range rec.Payments {
		doc.Credits = append(doc.Credits, fromEntry(e))
	}
	return doc
}

func toRecord(year int, doc monthDoc) core.MonthRecord {
	rec := core.MonthRecord{
		Year:         year,
		Month:        doc.Month,
		Purchases:    []core.Entry{},
		Payments:     []core.Entry{},
		TotalExpense: decimal.NewFromFloat(doc.TotalExpense),
		Balance:      decimal.NewFromFloat(doc.Balance),
	}
	for _, d := range doc.DailyExpenses {
		rec.Purchases = append(rec.Purchases, toEntry(d))
	}
	for _, d := range doc.Credits {
		rec.Payments = append(rec.Payments, toEntry(d))
	}
	return rec
}
