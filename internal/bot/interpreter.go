// Package bot implements the chat client of the ledger: command parsing,
// reply formatting, and the Telegram transport that carries them.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kirana/internal/core"
	"kirana/internal/services"
)

const (
	CommandDue CommandKind = iota
	CommandHelp
	CommandTransaction
)

type (
	CommandKind int

	// Command is one parsed chat message. Entry is meaningful only for
	// CommandTransaction; Name keeps the literal token for usage hints.
	Command struct {
		Kind  CommandKind
		Entry core.EntryKind
		Name  string
		Args  []string
	}
)

// ParseCommand splits a message on whitespace and matches the first token,
// case-insensitively and with any "@botname" suffix stripped. Unrecognized
// input returns ok=false and is silently ignored by the boundary layer.
func ParseCommand(text string) (Command, bool) {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return Command{}, false
	}
	name, _, _ := strings.Cut(strings.ToLower(parts[0]), "@")

	cmd := Command{Name: name, Args: parts[1:]}
	switch name {
	case "/due":
		cmd.Kind = CommandDue
	case "/help", "/start":
		cmd.Kind = CommandHelp
	case "/purchase":
		cmd.Kind = CommandTransaction
		cmd.Entry = core.Purchase
	case "/payment":
		cmd.Kind = CommandTransaction
		cmd.Entry = core.Payment
	default:
		return Command{}, false
	}
	return cmd, true
}

// Interpreter turns chat commands into ledger operations and human-readable
// replies. It never propagates raw errors toward the transport: every
// failure becomes a user-facing message.
type Interpreter struct {
	ledger *services.LedgerService
}

func NewInterpreter(ledger *services.LedgerService) *Interpreter {
	return &Interpreter{ledger: ledger}
}

// HandleMessage processes one inbound message. ok is false when the message
// is not a recognized command and no reply should be sent.
func (i *Interpreter) HandleMessage(ctx context.Context, text, username string) (reply string, ok bool) {
	cmd, ok := ParseCommand(text)
	if !ok {
		return "", false
	}

	switch cmd.Kind {
	case CommandHelp:
		return helpText, true
	case CommandDue:
		return i.dueSummary(ctx), true
	case CommandTransaction:
		return i.transaction(ctx, cmd, username), true
	}
	return "", false
}

func (i *Interpreter) dueSummary(ctx context.Context) string {
	key := core.KeyForDate(time.Now())
	sum, err := i.ledger.Due(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "Due summary failed", "error", err,
			"month", key.Name(), "year", key.Year)
		return "Error generating summary. Please try again."
	}
	return FormatDueSummary(sum)
}

func (i *Interpreter) transaction(ctx context.Context, cmd Command, username string) string {
	if len(cmd.Args) == 0 {
		return fmt.Sprintf("Missing amount.\n\nUsage: %s [amount] [date]\nExample: %s 2500",
			cmd.Name, cmd.Name)
	}

	amount, err := core.ParseAmount(cmd.Args[0])
	if err != nil {
		if d, perr := decimal.NewFromString(strings.ReplaceAll(cmd.Args[0], ",", "")); perr == nil && d.Sign() <= 0 {
			return "Amount must be greater than zero."
		}
		return fmt.Sprintf("Invalid amount: %s\n\nPlease enter a valid number.\nExample: %s 2500",
			cmd.Args[0], cmd.Name)
	}

	dateInput := strings.Join(cmd.Args[1:], " ")
	date, err := core.ParseFlexibleDate(dateInput)
	if err != nil {
		return fmt.Sprintf("Invalid date format: %s\n\nAccepted formats:\n  15/1/2026 or 15-1-2026\n  15 jan or 15 january 2026\n  today or yesterday", dateInput)
	}

	rec, err := i.ledger.Append(ctx, cmd.Entry, core.Entry{Date: date, Amount: amount})
	if err != nil {
		slog.ErrorContext(ctx, "Chat transaction failed", "error", err,
			"kind", cmd.Entry.String(), "amount", amount.String())
		return fmt.Sprintf("Error recording %s. Please try again.", cmd.Entry)
	}

	return FormatReceipt(cmd.Entry, amount, date, rec, username)
}

const helpText = `<b>Grocery Tracker Commands</b>

<b>/purchase [amount] [date]</b>
Record a purchase
  /purchase 2500
  /purchase 1500 15/1/2026

<b>/payment [amount] [date]</b>
Record a payment
  /payment 3000
  /payment 2000 15 jan

<b>/due</b>
View current due summary

<b>Date Formats:</b>
  15/1/2026 or 15-1-2026
  15 jan or 15 january 2026
  today or yesterday
  (Default: today)`

const separator = "------------------------"

// FormatReceipt echoes a recorded entry: the entry itself, the month's
// current totals, and the most recent entry of the opposite kind for
// context.
func FormatReceipt(kind core.EntryKind, amount decimal.Decimal, date time.Time, rec core.MonthRecord, username string) string {
	action := "Purchase"
	if kind == core.Payment {
		action = "Payment"
	}

	lines := []string{
		fmt.Sprintf("<b>%s Recorded</b>", action),
		"",
		"Amount: " + core.FormatRupees(amount),
		"Date: " + date.Format("02 Jan 2006"),
	}
	if username != "" {
		lines = append(lines, "By: @"+username)
	}
	lines = append(lines,
		"",
		separator,
		"",
		fmt.Sprintf("<b>Current Due: %s</b>", core.FormatRupees(rec.Balance)),
		"",
		fmt.Sprintf("%s %d:", rec.Month, rec.Year),
		"  Total Spent: "+core.FormatRupees(rec.TotalExpense),
		"  Total Paid: "+core.FormatRupees(rec.TotalPayments()),
	)

	opposite := core.Payment
	label := "Last payment"
	if kind == core.Payment {
		opposite = core.Purchase
		label = "Last purchase"
	}
	if last, found := lastEntry(rec, opposite); found {
		lines = append(lines, "",
			fmt.Sprintf("%s: %s on %s", label, core.FormatRupees(last.Amount), last.Date.Format("02 Jan")))
	}

	return strings.Join(lines, "\n")
}

// FormatDueSummary renders the /due report: current balance, month totals,
// the previous balance when nonzero, and the five most recent transactions.
func FormatDueSummary(sum services.DueSummary) string {
	if !sum.Found {
		return fmt.Sprintf("<b>Grocery Due Summary</b>\n\nNo transactions for %s %d yet.",
			sum.Key.Name(), sum.Key.Year)
	}
	rec := sum.Record

	lines := []string{
		"<b>Grocery Due Summary</b>",
		"",
		fmt.Sprintf("<b>Current Due: %s</b>", core.FormatRupees(rec.Balance)),
		"",
	}
	if sum.PreviousBalance.Sign() != 0 {
		lines = append(lines, "Previous Balance: "+core.FormatRupees(sum.PreviousBalance), "")
	}
	lines = append(lines,
		fmt.Sprintf("%s %d:", rec.Month, rec.Year),
		"  Total Purchases: "+core.FormatRupees(rec.TotalExpense),
		"  Total Payments: "+core.FormatRupees(rec.TotalPayments()),
	)

	if recent := recentActivity(rec, 5); len(recent) > 0 {
		lines = append(lines, "", "Recent Activity:")
		lines = append(lines, recent...)
	}

	return strings.Join(lines, "\n")
}

// lastEntry finds the most recent entry of a kind; on date ties the one
// appended first wins.
func lastEntry(rec core.MonthRecord, kind core.EntryKind) (core.Entry, bool) {
	entries := rec.Purchases
	if kind == core.Payment {
		entries = rec.Payments
	}
	if len(entries) == 0 {
		return core.Entry{}, false
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Date.After(best.Date) {
			best = e
		}
	}
	return best, true
}

// recentActivity merges purchases and payments, newest first, ties broken
// by original insertion order, capped at limit lines.
func recentActivity(rec core.MonthRecord, limit int) []string {
	type item struct {
		label string
		entry core.Entry
	}
	var items []item
	for _, e := range rec.Purchases {
		items = append(items, item{"Purchase", e})
	}
	for _, e := range rec.Payments {
		items = append(items, item{"Payment", e})
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].entry.Date.After(items[b].entry.Date)
	})

	if len(items) > limit {
		items = items[:limit]
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("  %s: %s %s",
			it.entry.Date.Format("02 Jan"), it.label, core.FormatRupees(it.entry.Amount)))
	}
	return lines
}
