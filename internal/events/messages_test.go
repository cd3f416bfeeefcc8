package events

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vytraty/internal/core"
)

func TestNewExpenseEvent(t *testing.T) {
	usd := decimal.RequireFromString("2.42")
	e := core.Expense{
		ID:   42,
		Name: "Продукти",
		Date: time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC),
		UAH:  decimal.RequireFromString("100"),
		USD:  &usd,
	}

	ev := NewExpenseEvent(TypeCreated, 111, e)

	if ev.EventID == "" {
		t.Fatal("event id must be set")
	}
	if ev.Type != TypeCreated {
		t.Fatalf("type = %q", ev.Type)
	}
	if ev.TelegramID != 111 || ev.ExpenseID != 42 {
		t.Fatalf("ids = %d/%d", ev.TelegramID, ev.ExpenseID)
	}
	if ev.Date != "19.03.2025" {
		t.Fatalf("date = %q", ev.Date)
	}
	if ev.UAH != "100" || ev.USD != "2.42" {
		t.Fatalf("amounts = %q/%q", ev.UAH, ev.USD)
	}
	if time.Since(ev.OccurredAt) > time.Second {
		t.Fatal("occurred_at should be recent")
	}
}

func TestNewExpenseEventAbsentUSD(t *testing.T) {
	e := core.Expense{ID: 1, Name: "Кава", UAH: decimal.NewFromInt(85)}
	ev := NewExpenseEvent(TypeDeleted, 111, e)
	if ev.USD != "" {
		t.Fatalf("usd should be empty, got %q", ev.USD)
	}
	if ev.Date != "" {
		t.Fatalf("zero date should serialize empty, got %q", ev.Date)
	}
}

func TestExpenseEventJSONRoundTrip(t *testing.T) {
	ev := &ExpenseEvent{
		EventID:    "11111111-2222-3333-4444-555555555555",
		Type:       TypeUpdated,
		TelegramID: 7,
		ExpenseID:  13,
		Name:       "Інтернет",
		Date:       "01.01.2025",
		UAH:        "399",
		USD:        "9.65",
		OccurredAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ExpenseEventFromJSON(data)
	if err != nil {
		t.Fatalf("ExpenseEventFromJSON() error = %v", err)
	}

	if *parsed != *ev {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", parsed, ev)
	}
}

func TestExpenseEventInvalidJSON(t *testing.T) {
	if _, err := ExpenseEventFromJSON([]byte(`{"expense_id": "not_a_number"}`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
