package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"vytraty/internal/core"
)

// Type classifies an expense mutation.
type Type string

const (
	TypeCreated Type = "expense.created"
	TypeUpdated Type = "expense.updated"
	TypeDeleted Type = "expense.deleted"
)

// ExpenseEvent is the JSON payload published for every expense mutation.
// It carries the full row snapshot so consumers (the sheets journal
// worker) need no database access.
type ExpenseEvent struct {
	EventID    string    `json:"event_id"`
	Type       Type      `json:"type"`
	TelegramID int64     `json:"telegram_id"`
	ExpenseID  int64     `json:"expense_id"`
	Name       string    `json:"name,omitempty"`
	Date       string    `json:"date,omitempty"`
	UAH        string    `json:"uah,omitempty"`
	USD        string    `json:"usd,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewExpenseEvent snapshots an expense into an event with a fresh id.
func NewExpenseEvent(typ Type, telegramID int64, e core.Expense) *ExpenseEvent {
	ev := &ExpenseEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		TelegramID: telegramID,
		ExpenseID:  e.ID,
		Name:       e.Name,
		UAH:        e.UAH.String(),
		OccurredAt: time.Now().UTC(),
	}
	if !e.Date.IsZero() {
		ev.Date = e.Date.Format(core.DateLayout)
	}
	if e.USD != nil {
		ev.USD = e.USD.String()
	}
	return ev
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON creates an event from JSON bytes
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
