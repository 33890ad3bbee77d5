package memory

import (
	"context"
	"sync"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/sheets"
)

// Exporter keeps exported rows in memory. It backs dry runs of the export
// command and tests.
type Exporter struct {
	mu   sync.Mutex
	rows [][]string
	now  func() time.Time
}

var _ sheets.SummaryExporter = (*Exporter)(nil)

func NewExporter() *Exporter {
	return &Exporter{now: time.Now}
}

func (e *Exporter) ExportSummary(ctx context.Context, ownerID string, s core.SummaryResult) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if ownerID == "" {
		return 0, core.NewValidationError("owner", core.ErrEmptyOwner)
	}
	rows := sheets.SummaryRows(ownerID, s, e.now())

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.rows) == 0 {
		e.rows = append(e.rows, sheets.Header)
	}
	e.rows = append(e.rows, rows...)
	return len(rows), nil
}

// Rows returns a copy of everything written so far, header included.
func (e *Exporter) Rows() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]string, len(e.rows))
	copy(out, e.rows)
	return out
}
