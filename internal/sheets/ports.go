// Package sheets publishes monthly summaries to spreadsheets.
package sheets

import (
	"context"
	"strconv"
	"time"

	"spendwise/internal/core"
)

// SummaryExporter appends the rows of a monthly summary to a sheet and
// returns how many rows were written.
type SummaryExporter interface {
	ExportSummary(ctx context.Context, ownerID string, s core.SummaryResult) (int, error)
}

// Header is the first row of an export sheet.
var Header = []string{"Exported At", "Owner", "Month", "Category", "Category ID", "Total", "Count"}

// TotalLabel marks the row carrying the month total.
const TotalLabel = "TOTAL"

// SummaryRows flattens a summary into one total row followed by one row per
// category. Amounts are plain decimals so the sheet can sum them.
func SummaryRows(ownerID string, s core.SummaryResult, exportedAt time.Time) [][]string {
	stamp := exportedAt.UTC().Format(time.RFC3339)
	rows := make([][]string, 0, len(s.ByCategory)+1)
	rows = append(rows, []string{
		stamp, ownerID, s.Month, TotalLabel, "", s.TotalSpend.Decimal().StringFixed(2), strconv.FormatInt(s.Count, 10),
	})
	for _, c := range s.ByCategory {
		rows = append(rows, []string{
			stamp, ownerID, s.Month, c.CategoryName, strconv.FormatInt(c.CategoryID, 10), c.Total.Decimal().StringFixed(2), "",
		})
	}
	return rows
}
