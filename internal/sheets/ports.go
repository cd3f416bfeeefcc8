package sheets

import "context"

// Row is one journal line: date, name, UAH amount, USD amount (may be
// empty), telegram id.
type Row struct {
	Date       string
	Name       string
	UAH        string
	USD        string
	TelegramID int64
}

// Appender is the outbound port for the expense journal.
type Appender interface {
	Append(ctx context.Context, row Row) error
}
