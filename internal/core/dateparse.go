package core

import (
	"strings"
	"time"
)

// ISODate is the canonical wire format for transaction dates.
const ISODate = "2006-01-02"

// Date patterns accepted by the chat interface, in priority order.
// Day-first numeric forms, then named-month forms, then the year-less
// variants that default to the current year.
var datePatterns = []struct {
	layout   string
	needYear bool
}{
	{"2/1/2006", false},
	{"2-1-2006", false},
	{"2.1.2006", false},
	{"2006-01-02", false},
	{"2 Jan 2006", false},
	{"2 January 2006", false},
	{"Jan 2 2006", false},
	{"January 2 2006", false},
	{"2/1", true},
	{"2-1", true},
	{"2 Jan", true},
	{"2 January", true},
}

// ParseISODate parses a strict YYYY-MM-DD date.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.Parse(ISODate, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseFlexibleDate parses the free-form dates the chat commands accept:
// empty input and "today" mean the current day, "yesterday" the day before,
// and otherwise the first matching pattern wins. Patterns without a year
// default to the current year.
func ParseFlexibleDate(s string) (time.Time, error) {
	return parseFlexibleDateAt(s, time.Now())
}

func parseFlexibleDateAt(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch s {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	for _, p := range datePatterns {
		t, err := time.Parse(p.layout, s)
		if err != nil {
			continue
		}
		if p.needYear {
			t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}
