package worker

import (
	"context"
	"errors"
	"testing"

	"vytraty/internal/events"
	"vytraty/internal/sheets"
	"vytraty/internal/sheets/memory"
)

func TestHandleEventAppendsCreated(t *testing.T) {
	journal := memory.New()
	w := NewSyncWorker(journal)

	ev := &events.ExpenseEvent{
		EventID:    "ev-1",
		Type:       events.TypeCreated,
		TelegramID: 111,
		ExpenseID:  1,
		Name:       "Продукти",
		Date:       "19.03.2025",
		UAH:        "100",
		USD:        "2.42",
	}
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := journal.Rows()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	want := sheets.Row{Date: "19.03.2025", Name: "Продукти", UAH: "100", USD: "2.42", TelegramID: 111}
	if rows[0] != want {
		t.Fatalf("row = %+v, want %+v", rows[0], want)
	}
}

func TestHandleEventSkipsUpdatesAndDeletes(t *testing.T) {
	journal := memory.New()
	w := NewSyncWorker(journal)

	for _, typ := range []events.Type{events.TypeUpdated, events.TypeDeleted} {
		ev := &events.ExpenseEvent{EventID: "ev", Type: typ, ExpenseID: 2}
		if err := w.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
	}
	if len(journal.Rows()) != 0 {
		t.Fatalf("append-only journal must ignore non-create events")
	}
}

type failingJournal struct{}

func (failingJournal) Append(context.Context, sheets.Row) error {
	return errors.New("quota exceeded")
}

func TestHandleEventPropagatesAppendFailure(t *testing.T) {
	w := NewSyncWorker(failingJournal{})
	ev := &events.ExpenseEvent{EventID: "ev", Type: events.TypeCreated}
	if err := w.HandleEvent(context.Background(), ev); err == nil {
		t.Fatal("append failures must requeue the delivery")
	}
}
