// Package storage persists users and expenses in SQLite.
//
// Every operation is keyed by the Telegram account id and scoped to the
// owning user: an expense id that belongs to someone else behaves exactly
// like a missing row. Each call is a single open-use-commit unit; there are
// no transactions spanning calls.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"vytraty/internal/core"
)

// ErrUserNotFound is returned when the Telegram id has no users row.
// Callers are expected to EnsureUser on /start, so hitting this means a
// flow ran for an account that never greeted the bot.
var ErrUserNotFound = errors.New("user not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one pooled connection also keeps
	// in-memory test databases on the same handle as the migrations.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// EnsureUser is the idempotent get-or-create keyed on the Telegram id.
// The username is recorded on first contact and refreshed when it changed.
func (r *SQLiteRepository) EnsureUser(ctx context.Context, telegramID int64, username string) (core.User, error) {
	var u core.User
	var storedName sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, telegram_id, username FROM users WHERE telegram_id = ?",
		telegramID,
	).Scan(&u.ID, &u.TelegramID, &storedName)

	switch {
	case err == nil:
		u.Username = storedName.String
		if username != "" && username != u.Username {
			if _, err := r.db.ExecContext(ctx,
				"UPDATE users SET username = ? WHERE id = ?", username, u.ID); err != nil {
				return core.User{}, fmt.Errorf("update username: %w", err)
			}
			u.Username = username
		}
		return u, nil
	case errors.Is(err, sql.ErrNoRows):
		res, err := r.db.ExecContext(ctx,
			"INSERT INTO users (telegram_id, username) VALUES (?, ?)",
			telegramID, nullString(username))
		if err != nil {
			return core.User{}, fmt.Errorf("create user: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.User{}, fmt.Errorf("user insert id: %w", err)
		}
		slog.InfoContext(ctx, "User created", "telegram_id", telegramID, "username", username)
		return core.User{ID: id, TelegramID: telegramID, Username: username}, nil
	default:
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}
}

func (r *SQLiteRepository) userID(ctx context.Context, telegramID int64) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE telegram_id = ?", telegramID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	return id, nil
}

// CreateExpense inserts an expense for the user. A zero date defaults to
// the record-creation instant. usd is nil when no rate was available.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, telegramID int64, name string, date time.Time, uah decimal.Decimal, usd *decimal.Decimal) (core.Expense, error) {
	userID, err := r.userID(ctx, telegramID)
	if err != nil {
		return core.Expense{}, err
	}

	now := time.Now().UTC()
	if date.IsZero() {
		date = now
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO expenses (user_id, name, date, uah, usd, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		userID, name, date, uah.String(), usdString(usd), now)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"telegram_id", telegramID,
		"name", name,
		"uah", uah.String(),
		"has_usd", usd != nil)

	return core.Expense{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Date:      date,
		UAH:       uah,
		USD:       usd,
		CreatedAt: now,
	}, nil
}

// ListExpenses returns the user's expenses ordered by id, optionally
// filtered by an inclusive date range.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, telegramID int64, rng *core.DateRange) ([]core.Expense, error) {
	userID, err := r.userID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	query := "SELECT id, user_id, name, date, uah, usd, created_at FROM expenses WHERE user_id = ?"
	args := []any{userID}
	if rng != nil {
		query += " AND date >= ? AND date <= ?"
		args = append(args, rng.Start, rng.End)
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// SumAmounts aggregates the UAH and USD totals over the same filtered set
// ListExpenses returns. Rows without a USD amount contribute nothing to
// the USD total. Sums are computed on exact decimals, not SQL floats.
func (r *SQLiteRepository) SumAmounts(ctx context.Context, telegramID int64, rng *core.DateRange) (decimal.Decimal, decimal.Decimal, error) {
	expenses, err := r.ListExpenses(ctx, telegramID, rng)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}

	uahTotal := decimal.Zero
	usdTotal := decimal.Zero
	for _, e := range expenses {
		uahTotal = uahTotal.Add(e.UAH)
		if e.USD != nil {
			usdTotal = usdTotal.Add(*e.USD)
		}
	}
	return uahTotal, usdTotal, nil
}

// DeleteExpense removes the expense iff it exists and belongs to the user.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, telegramID, expenseID int64) (bool, error) {
	userID, err := r.userID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?", expenseID, userID)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete expense rows: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expense deleted", "id", expenseID, "telegram_id", telegramID)
	}
	return n > 0, nil
}

// UpdateExpense overwrites name, UAH and USD amounts in one statement, so
// a concurrent reader sees either all old or all new values.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, telegramID, expenseID int64, name string, uah decimal.Decimal, usd *decimal.Decimal) (bool, error) {
	userID, err := r.userID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET name = ?, uah = ?, usd = ? WHERE id = ? AND user_id = ?",
		name, uah.String(), usdString(usd), expenseID, userID)
	if err != nil {
		return false, fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update expense rows: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Expense updated",
			"id", expenseID,
			"telegram_id", telegramID,
			"name", name,
			"uah", uah.String(),
			"has_usd", usd != nil)
	}
	return n > 0, nil
}

// FindExpense returns the expense iff it exists and belongs to the user.
func (r *SQLiteRepository) FindExpense(ctx context.Context, telegramID, expenseID int64) (core.Expense, bool, error) {
	userID, err := r.userID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return core.Expense{}, false, nil
		}
		return core.Expense{}, false, err
	}

	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, date, uah, usd, created_at FROM expenses WHERE id = ? AND user_id = ?",
		expenseID, userID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, false, nil
	}
	if err != nil {
		return core.Expense{}, false, err
	}
	return e, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		uahText string
		usdText sql.NullString
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Date, &uahText, &usdText, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	uah, err := decimal.NewFromString(uahText)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored uah amount %q: %w", uahText, err)
	}
	e.UAH = uah

	if usdText.Valid {
		usd, err := decimal.NewFromString(usdText.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("parse stored usd amount %q: %w", usdText.String, err)
		}
		e.USD = &usd
	}
	return e, nil
}

func usdString(usd *decimal.Decimal) any {
	if usd == nil {
		return nil
	}
	return usd.String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
