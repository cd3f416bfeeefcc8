// Package memory holds an in-memory journal used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"vytraty/internal/sheets"
)

type Journal struct {
	mu   sync.Mutex
	rows []sheets.Row
}

func New() *Journal { return &Journal{} }

func (j *Journal) Append(_ context.Context, row sheets.Row) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = append(j.rows, row)
	return nil
}

// Rows returns a copy of everything appended so far.
func (j *Journal) Rows() []sheets.Row {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]sheets.Row, len(j.rows))
	copy(out, j.rows)
	return out
}
