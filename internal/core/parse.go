// Package core holds the domain types and the input parsers shared by the
// conversation flows and the report generator.
package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the only date format the bot accepts from users.
const DateLayout = "02.01.2006"

var datePattern = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// ParseDate parses a strict dd.mm.yyyy string.
// The shape is checked first so "1.2.2025" fails even though time.Parse
// would also reject it; calendar validity is left to time.Parse.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !datePattern.MatchString(s) {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseRange parses two dd.mm.yyyy bounds into an inclusive range.
// The end bound is pushed to the last instant of its day so that
// expenses dated anywhere on the end day match.
func ParseRange(start, end string) (DateRange, error) {
	from, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	to, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: from, End: to.Add(24*time.Hour - time.Nanosecond)}, nil
}

// ParseAmount parses a non-negative decimal amount.
// Decimal commas are accepted alongside dots, as users type both.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// ParseNameAmount parses the edit flow's combined "name, amount" input:
// exactly one separating comma, a non-empty name and a positive amount.
func ParseNameAmount(s string) (string, decimal.Decimal, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return "", decimal.Decimal{}, ErrInvalidAmount
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return "", decimal.Decimal{}, ErrEmptyName
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil || !amount.IsPositive() {
		return "", decimal.Decimal{}, ErrInvalidAmount
	}
	return name, amount, nil
}
