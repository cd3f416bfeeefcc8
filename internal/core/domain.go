package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// User is a bot account, keyed by the Telegram account id.
	User struct {
		ID         int64
		TelegramID int64
		Username   string
	}

	// Expense is a single spending record owned by one user.
	// USD is nil when no exchange rate was available at write time.
	Expense struct {
		ID        int64
		UserID    int64
		Name      string
		Date      time.Time
		UAH       decimal.Decimal
		USD       *decimal.Decimal
		CreatedAt time.Time
	}

	// DateRange is an inclusive [Start, End] filter on expense dates.
	DateRange struct {
		Start time.Time
		End   time.Time
	}
)

var (
	ErrEmptyName     = errors.New("empty expense name")
	ErrInvalidDate   = errors.New("invalid date format")
	ErrInvalidAmount = errors.New("invalid amount")
)

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if e.UAH.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Contains reports whether d falls inside the inclusive range.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}
