// Package bot drives the per-user conversation: a linear sequence of
// waiting states for each of the four menu actions. The state machine
// (Dialog) is pure and transport-free; telegram.go feeds it messages.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vytraty/internal/cache"
	"vytraty/internal/core"
	"vytraty/internal/report"
)

// ExpenseService is the slice of the service layer the dialog needs.
type ExpenseService interface {
	EnsureUser(ctx context.Context, telegramID int64, username string) (core.User, error)
	AddExpense(ctx context.Context, telegramID int64, name string, date time.Time, uah decimal.Decimal) (core.Expense, error)
	Report(ctx context.Context, telegramID int64, rng *core.DateRange) (report.Result, error)
	DeleteExpense(ctx context.Context, telegramID, expenseID int64) (bool, error)
	FindExpense(ctx context.Context, telegramID, expenseID int64) (core.Expense, bool, error)
	UpdateExpense(ctx context.Context, telegramID, expenseID int64, name string, uah decimal.Decimal) (bool, error)
}

// Reply is one outgoing message. A reply carries either text or a file.
type Reply struct {
	Text         string
	File         *report.File
	ShowMenu     bool
	HideKeyboard bool
}

// Menu button labels. These are fixed: the transport renders them as a
// reply keyboard and the dialog matches incoming text against them.
const (
	BtnAdd    = "Додати статтю витрат"
	BtnReport = "Отримати звіт витрат"
	BtnDelete = "Видалити статтю витрат"
	BtnEdit   = "Відредагувати статтю витрат"
)

const (
	msgChooseAction = "Оберіть дію:"
	msgGreeting     = "Привіт, %s!\nОберіть дію:"

	msgPromptName   = "Введіть назву статті витрат (наприклад, 'Щомісячна сплата за інтернет'):"
	msgPromptDate   = "Введіть дату у форматі dd.mm.YYYY (наприклад, '19.03.2025'):"
	msgBadDate      = "Невірний формат дати! Використовуйте формат dd.mm.YYYY."
	msgPromptAmount = "Введіть суму витрат (наприклад, '1369'):"
	msgBadAmount    = "Сума витрат повинна бути числом! Будь ласка, введіть коректну суму."

	msgAddedWithUSD = "Додано нову статтю витрат:\nНазва: %s\nДата: %s\nСума: %s грн\nСума в доларах: %s USD"
	msgAddedNoRate  = "Додано нову статтю витрат:\nНазва: %s\nДата: %s\nСума: %s грн\nНе вдалося отримати курс долара"

	msgPromptStart   = "Введіть дату початку періоду (наприклад, '02.02.2025'):"
	msgPromptEnd     = "Введіть дату кінця періоду (наприклад, '02.03.2025'):"
	msgReportCaption = "Звіт витрат за вказаний період:"

	msgListing        = "Генеруємо список витрат..."
	msgPromptDeleteID = "Введіть ID статті витрат, яку потрібно видалити:"
	msgBadID          = "ID має бути числом! Введіть коректний ID статті витрат:"
	msgDeleted        = "Стаття витрат з ID %d успішно видалена."
	msgDeleteNotFound = "Не вдалося знайти статтю витрат з ID %d. Перевірте введений ID і спробуйте ще раз."

	msgPromptEditID  = "Введіть ID статті витрат, яку потрібно відредагувати:"
	msgEditNotFound  = "Витрата з таким ID не знайдена."
	msgCurrentRecord = "Поточна стаття витрат:\n\nНазва: %s\nСума: %s грн\n\nВведіть нову назву та нову суму через кому (наприклад: Продукти, 5500):"
	msgBadFields     = "Неправильний формат. Введіть дані у форматі: Нова назва, Сума (наприклад: Продукти, 5500)"
	msgUpdated       = "Стаття витрат успішно оновлена:\n\nНова назва: %s\nНова сума: %s грн"
	msgUpdateFailed  = "Сталася помилка при оновленні. Спробуйте ще раз."

	msgOperationFailed = "Сталася помилка. Спробуйте ще раз."
)

type state int

const (
	stateAddName state = iota
	stateAddDate
	stateAddAmount
	stateReportStart
	stateReportEnd
	stateDeleteID
	stateEditID
	stateEditFields
)

// session holds the active waiting state and the fields collected so
// far. Absence of a session means the user is idle at the menu.
type session struct {
	state state

	name  string
	date  time.Time
	start string

	editID int64
}

type Dialog struct {
	svc      ExpenseService
	sessions *cache.TTLCache[*session]
}

const maxSessions = 4096

// NewDialog creates the controller. Sessions idle longer than ttl are
// dropped; the user simply lands back at the menu.
func NewDialog(svc ExpenseService, ttl time.Duration) *Dialog {
	return &Dialog{
		svc:      svc,
		sessions: cache.New[*session](maxSessions, ttl),
	}
}

// Sessions exposes the session store so the process can run its janitor.
func (d *Dialog) Sessions() *cache.TTLCache[*session] { return d.sessions }

func sessionKey(telegramID int64) string { return strconv.FormatInt(telegramID, 10) }

// Start handles /start: ensures the user exists and greets with the menu.
func (d *Dialog) Start(ctx context.Context, telegramID int64, username string) []Reply {
	d.sessions.Delete(sessionKey(telegramID))

	user, err := d.svc.EnsureUser(ctx, telegramID, username)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to ensure user", "telegram_id", telegramID, "error", err)
		return []Reply{{Text: msgOperationFailed, ShowMenu: true}}
	}

	display := user.Username
	if display == "" {
		display = strconv.FormatInt(telegramID, 10)
	}
	return []Reply{{Text: fmt.Sprintf(msgGreeting, display), ShowMenu: true}}
}

// Handle routes one free-text message. Menu buttons always take
// precedence and restart their flow, even mid-conversation.
func (d *Dialog) Handle(ctx context.Context, telegramID int64, text string) []Reply {
	text = strings.TrimSpace(text)
	key := sessionKey(telegramID)

	switch text {
	case BtnAdd:
		d.sessions.Set(key, &session{state: stateAddName})
		return []Reply{{Text: msgPromptName, HideKeyboard: true}}
	case BtnReport:
		d.sessions.Set(key, &session{state: stateReportStart})
		return []Reply{{Text: msgPromptStart, HideKeyboard: true}}
	case BtnDelete:
		return d.startListingFlow(ctx, telegramID, stateDeleteID, msgPromptDeleteID)
	case BtnEdit:
		return d.startListingFlow(ctx, telegramID, stateEditID, msgPromptEditID)
	}

	sess, ok := d.sessions.Get(key)
	if !ok {
		return []Reply{{Text: msgChooseAction, ShowMenu: true}}
	}

	switch sess.state {
	case stateAddName:
		return d.handleAddName(sess, key, text)
	case stateAddDate:
		return d.handleAddDate(sess, key, text)
	case stateAddAmount:
		return d.handleAddAmount(ctx, telegramID, sess, key, text)
	case stateReportStart:
		return d.handleReportStart(sess, key, text)
	case stateReportEnd:
		return d.handleReportEnd(ctx, telegramID, key, sess, text)
	case stateDeleteID:
		return d.handleDeleteID(ctx, telegramID, key, text)
	case stateEditID:
		return d.handleEditID(ctx, telegramID, sess, key, text)
	case stateEditFields:
		return d.handleEditFields(ctx, telegramID, sess, key, text)
	default:
		d.sessions.Delete(key)
		return []Reply{{Text: msgChooseAction, ShowMenu: true}}
	}
}

// startListingFlow opens the delete/edit flows: send the full listing,
// then ask for an id. Without any expenses the flow never starts.
func (d *Dialog) startListingFlow(ctx context.Context, telegramID int64, next state, prompt string) []Reply {
	key := sessionKey(telegramID)
	d.sessions.Delete(key)

	res, err := d.svc.Report(ctx, telegramID, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list expenses", "telegram_id", telegramID, "error", err)
		return []Reply{{Text: msgOperationFailed, ShowMenu: true}}
	}
	if !res.IsFile() {
		return []Reply{
			{Text: res.Message, ShowMenu: true},
		}
	}

	d.sessions.Set(key, &session{state: next})
	return []Reply{
		{Text: msgListing, HideKeyboard: true},
		{File: res.File},
		{Text: prompt},
	}
}

func (d *Dialog) handleAddName(sess *session, key, text string) []Reply {
	if text == "" {
		return []Reply{{Text: msgPromptName}}
	}
	sess.name = text
	sess.state = stateAddDate
	d.sessions.Set(key, sess)
	return []Reply{{Text: msgPromptDate}}
}

func (d *Dialog) handleAddDate(sess *session, key, text string) []Reply {
	date, err := core.ParseDate(text)
	if err != nil {
		return []Reply{{Text: msgBadDate}}
	}
	sess.date = date
	sess.state = stateAddAmount
	d.sessions.Set(key, sess)
	return []Reply{{Text: msgPromptAmount}}
}

func (d *Dialog) handleAddAmount(ctx context.Context, telegramID int64, sess *session, key, text string) []Reply {
	amount, err := core.ParseAmount(text)
	if err != nil {
		return []Reply{{Text: msgBadAmount}}
	}

	d.sessions.Delete(key)

	e, err := d.svc.AddExpense(ctx, telegramID, sess.name, sess.date, amount)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to add expense", "telegram_id", telegramID, "error", err)
		return []Reply{{Text: msgOperationFailed, ShowMenu: true}}
	}

	dateText := sess.date.Format(core.DateLayout)
	var confirmation string
	if e.USD != nil {
		confirmation = fmt.Sprintf(msgAddedWithUSD, sess.name, dateText, amount.String(), e.USD.String())
	} else {
		confirmation = fmt.Sprintf(msgAddedNoRate, sess.name, dateText, amount.String())
	}
	return []Reply{
		{Text: confirmation},
		{Text: msgChooseAction, ShowMenu: true},
	}
}

func (d *Dialog) handleReportStart(sess *session, key, text string) []Reply {
	if _, err := core.ParseDate(text); err != nil {
		return []Reply{{Text: msgBadDate}}
	}
	sess.start = text
	sess.state = stateReportEnd
	d.sessions.Set(key, sess)
	return []Reply{{Text: msgPromptEnd}}
}

func (d *Dialog) handleReportEnd(ctx context.Context, telegramID int64, key string, sess *session, text string) []Reply {
	if _, err := core.ParseDate(text); err != nil {
		return []Reply{{Text: msgBadDate}}
	}

	d.sessions.Delete(key)

	rng, err := core.ParseRange(sess.start, text)
	if err != nil {
		// Both bounds already passed the format check; a range error
		// here means the stored start went stale.
		return []Reply{{Text: report.MsgInvalidDates, ShowMenu: true}}
	}

	res, err := d.svc.Report(ctx, telegramID, &rng)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build report", "telegram_id", telegramID, "error", err)
		return []Reply{{Text: msgOperationFailed, ShowMenu: true}}
	}
	if !res.IsFile() {
		return []Reply{
			{Text: res.Message, ShowMenu: true},
		}
	}
	return []Reply{
		{File: res.File},
		{Text: msgReportCaption, ShowMenu: true},
	}
}

func (d *Dialog) handleDeleteID(ctx context.Context, telegramID int64, key, text string) []Reply {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return []Reply{{Text: msgBadID}}
	}

	d.sessions.Delete(key)

	ok, err := d.svc.DeleteExpense(ctx, telegramID, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to delete expense", "telegram_id", telegramID, "expense_id", id, "error", err)
		return []Reply{{Text: msgOperationFailed, ShowMenu: true}}
	}

	var confirmation string
	if ok {
		confirmation = fmt.Sprintf(msgDeleted, id)
	} else {
		confirmation = fmt.Sprintf(msgDeleteNotFound, id)
	}
	return []Reply{
		{Text: confirmation},
		{Text: msgChooseAction, ShowMenu: true},
	}
}

func (d *Dialog) handleEditID(ctx context.Context, telegramID int64, sess *session, key, text string) []Reply {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return []Reply{{Text: msgBadID}}
	}

	e, found, err := d.svc.FindExpense(ctx, telegramID, id)
	if err != nil {
		d.sessions.Delete(key)
		slog.ErrorContext(ctx, "Failed to look up expense", "telegram_id", telegramID, "expense_id", id, "error", err)
		return []Reply{{Text: msgOperationFailed, ShowMenu: true}}
	}
	if !found {
		d.sessions.Delete(key)
		return []Reply{
			{Text: msgEditNotFound},
			{Text: msgChooseAction, ShowMenu: true},
		}
	}

	sess.editID = id
	sess.state = stateEditFields
	d.sessions.Set(key, sess)
	return []Reply{{Text: fmt.Sprintf(msgCurrentRecord, e.Name, e.UAH.String())}}
}

func (d *Dialog) handleEditFields(ctx context.Context, telegramID int64, sess *session, key, text string) []Reply {
	name, amount, err := core.ParseNameAmount(text)
	if err != nil {
		return []Reply{{Text: msgBadFields}}
	}

	d.sessions.Delete(key)

	ok, err := d.svc.UpdateExpense(ctx, telegramID, sess.editID, name, amount)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to update expense", "telegram_id", telegramID, "expense_id", sess.editID, "error", err)
		return []Reply{{Text: msgOperationFailed, ShowMenu: true}}
	}

	var confirmation string
	if ok {
		confirmation = fmt.Sprintf(msgUpdated, name, amount.String())
	} else {
		confirmation = msgUpdateFailed
	}
	return []Reply{
		{Text: confirmation},
		{Text: msgChooseAction, ShowMenu: true},
	}
}
