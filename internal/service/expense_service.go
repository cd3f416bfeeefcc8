// Package service orchestrates expense operations across storage, the
// exchange-rate source and the event stream.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"vytraty/internal/core"
	"vytraty/internal/events"
	"vytraty/internal/rates"
	"vytraty/internal/report"
)

// Repository is the persistence contract the service depends on,
// implemented by storage.SQLiteRepository.
type Repository interface {
	EnsureUser(ctx context.Context, telegramID int64, username string) (core.User, error)
	CreateExpense(ctx context.Context, telegramID int64, name string, date time.Time, uah decimal.Decimal, usd *decimal.Decimal) (core.Expense, error)
	ListExpenses(ctx context.Context, telegramID int64, rng *core.DateRange) ([]core.Expense, error)
	SumAmounts(ctx context.Context, telegramID int64, rng *core.DateRange) (decimal.Decimal, decimal.Decimal, error)
	DeleteExpense(ctx context.Context, telegramID, expenseID int64) (bool, error)
	UpdateExpense(ctx context.Context, telegramID, expenseID int64, name string, uah decimal.Decimal, usd *decimal.Decimal) (bool, error)
	FindExpense(ctx context.Context, telegramID, expenseID int64) (core.Expense, bool, error)
}

// Publisher is the event stream contract, implemented by events.Client.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, ev *events.ExpenseEvent) error
}

// ExpenseService ties the flows together. A nil publisher disables
// event publishing; publish failures never fail the user's operation.
type ExpenseService struct {
	repo      Repository
	rates     rates.Source
	publisher Publisher
}

func New(repo Repository, rateSource rates.Source, publisher Publisher) *ExpenseService {
	return &ExpenseService{repo: repo, rates: rateSource, publisher: publisher}
}

func (s *ExpenseService) EnsureUser(ctx context.Context, telegramID int64, username string) (core.User, error) {
	return s.repo.EnsureUser(ctx, telegramID, username)
}

// AddExpense persists a new expense with a best-effort USD conversion.
func (s *ExpenseService) AddExpense(ctx context.Context, telegramID int64, name string, date time.Time, uah decimal.Decimal) (core.Expense, error) {
	usd := s.lookupUSD(ctx, uah)

	e, err := s.repo.CreateExpense(ctx, telegramID, name, date, uah, usd)
	if err != nil {
		return core.Expense{}, err
	}

	s.publish(ctx, events.NewExpenseEvent(events.TypeCreated, telegramID, e))
	return e, nil
}

// Report builds a spreadsheet over the optional inclusive range, or a
// message when there is nothing to show.
func (s *ExpenseService) Report(ctx context.Context, telegramID int64, rng *core.DateRange) (report.Result, error) {
	expenses, err := s.repo.ListExpenses(ctx, telegramID, rng)
	if err != nil {
		return report.Result{}, err
	}
	if len(expenses) == 0 {
		if rng != nil {
			return report.MessageResult(report.MsgNoDataRange), nil
		}
		return report.MessageResult(report.MsgNoDataAll), nil
	}

	uahTotal, usdTotal, err := s.repo.SumAmounts(ctx, telegramID, rng)
	if err != nil {
		return report.Result{}, err
	}

	file, err := report.Build(expenses, uahTotal, usdTotal)
	if err != nil {
		return report.Result{}, err
	}
	return report.FileResult(file), nil
}

// DeleteExpense removes the user's expense and reports whether a row
// owned by that user existed.
func (s *ExpenseService) DeleteExpense(ctx context.Context, telegramID, expenseID int64) (bool, error) {
	snapshot, found, err := s.repo.FindExpense(ctx, telegramID, expenseID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	ok, err := s.repo.DeleteExpense(ctx, telegramID, expenseID)
	if err != nil || !ok {
		return ok, err
	}

	s.publish(ctx, events.NewExpenseEvent(events.TypeDeleted, telegramID, snapshot))
	return true, nil
}

func (s *ExpenseService) FindExpense(ctx context.Context, telegramID, expenseID int64) (core.Expense, bool, error) {
	return s.repo.FindExpense(ctx, telegramID, expenseID)
}

// UpdateExpense overwrites name and UAH amount and recomputes the USD
// amount from a fresh rate lookup, storing absence when unavailable.
func (s *ExpenseService) UpdateExpense(ctx context.Context, telegramID, expenseID int64, name string, uah decimal.Decimal) (bool, error) {
	usd := s.lookupUSD(ctx, uah)

	ok, err := s.repo.UpdateExpense(ctx, telegramID, expenseID, name, uah, usd)
	if err != nil || !ok {
		return ok, err
	}

	updated := core.Expense{ID: expenseID, Name: name, UAH: uah, USD: usd}
	s.publish(ctx, events.NewExpenseEvent(events.TypeUpdated, telegramID, updated))
	return true, nil
}

// lookupUSD converts the amount at the current rate, or returns nil when
// no rate is available. Rate failures are never surfaced to the user.
func (s *ExpenseService) lookupUSD(ctx context.Context, uah decimal.Decimal) *decimal.Decimal {
	rate, err := s.rates.Rate(ctx)
	if err != nil {
		if !errors.Is(err, rates.ErrUnavailable) {
			slog.WarnContext(ctx, "Unexpected rate source error", "error", err)
		}
		return nil
	}
	usd := rates.Convert(uah, rate)
	return &usd
}

func (s *ExpenseService) publish(ctx context.Context, ev *events.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		// Storage already committed; the journal is best-effort.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"event_id", ev.EventID,
			"type", ev.Type,
			"error", err)
	}
}
