// Package worker mirrors expense events into the spreadsheet journal.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"vytraty/internal/events"
	"vytraty/internal/sheets"
)

// SyncWorker appends created expenses to the journal. The journal is
// append-only: update and delete events are acknowledged but not
// mirrored.
type SyncWorker struct {
	journal sheets.Appender
}

func NewSyncWorker(journal sheets.Appender) *SyncWorker {
	return &SyncWorker{journal: journal}
}

// HandleEvent processes one expense event from the queue. A returned
// error requeues the delivery, so only transient append failures are
// propagated.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *events.ExpenseEvent) error {
	if ev.Type != events.TypeCreated {
		slog.InfoContext(ctx, "Skipping non-create event",
			"event_id", ev.EventID,
			"type", ev.Type,
			"expense_id", ev.ExpenseID)
		return nil
	}

	row := sheets.Row{
		Date:       ev.Date,
		Name:       ev.Name,
		UAH:        ev.UAH,
		USD:        ev.USD,
		TelegramID: ev.TelegramID,
	}
	if err := w.journal.Append(ctx, row); err != nil {
		return fmt.Errorf("append journal row: %w", err)
	}

	slog.InfoContext(ctx, "Journaled expense",
		"event_id", ev.EventID,
		"expense_id", ev.ExpenseID)
	return nil
}
