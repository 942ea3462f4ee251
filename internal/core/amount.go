// Package core provides the pure ledger domain: month records, balance
// rollover math, and the amount/date parsing shared by the HTTP API and the
// chat interpreter.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a user-supplied monetary token. Thousands separators
// are stripped first, so "2,500" parses as 2500. Zero and negative values
// are rejected before they can reach storage.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatRupees renders an amount as "Rs. 2,500": rounded to whole rupees,
// digits grouped in threes.
func FormatRupees(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
		if len(s) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return "Rs. " + b.String()
}
