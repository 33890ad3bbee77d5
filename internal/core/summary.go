package core

import "sort"

// CategoryTotal is the amount spent in one category, as returned by a
// grouping query.
type CategoryTotal struct {
	CategoryID   int64  `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Total        Money  `json:"total"`
}

// Totals is the ungrouped aggregate over a filter.
type Totals struct {
	Sum   Money
	Count int64
}

// SummaryResult is the monthly overview for one owner.
type SummaryResult struct {
	Month      string          `json:"month"`
	TotalSpend Money           `json:"totalSpend"`
	Count      int64           `json:"count"`
	ByCategory []CategoryTotal `json:"byCategory"`
}

// EmptySummary is returned when no expense matches.
func EmptySummary(month Month) SummaryResult {
	return SummaryResult{Month: month.String(), ByCategory: []CategoryTotal{}}
}

// SortByTotal orders entries by total descending, then by id. Callers must not
// rely on this order.
func SortByTotal(entries []CategoryTotal) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Total.Cents != entries[j].Total.Cents {
			return entries[i].Total.Cents > entries[j].Total.Cents
		}
		return entries[i].CategoryID < entries[j].CategoryID
	})
}

// CategorySum adds up the grouped totals.
func CategorySum(entries []CategoryTotal) Money {
	var sum Money
	for _, e := range entries {
		sum = sum.Add(e.Total)
	}
	return sum
}
