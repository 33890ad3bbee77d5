package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/core"
)

// MonthSummarizer aggregates an owner's expenses over one month.
type MonthSummarizer struct {
	store    ExpenseAggregator
	resolver *CategoryResolver
}

func NewMonthSummarizer(store ExpenseAggregator, resolver *CategoryResolver) *MonthSummarizer {
	return &MonthSummarizer{store: store, resolver: resolver}
}

// Summarize returns the total, the count and the per-category subtotals of
// the month. The two aggregations run concurrently; no partial result is
// returned when either fails.
func (s *MonthSummarizer) Summarize(ctx context.Context, ownerID, month string) (core.SummaryResult, error) {
	if ownerID == "" {
		return core.SummaryResult{}, core.NewValidationError("owner", core.ErrEmptyOwner)
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.SummaryResult{}, err
	}
	r := m.Range()
	filter := core.ExpenseFilter{OwnerID: ownerID, Range: &r}

	var (
		totals core.Totals
		groups []core.CategoryTotal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.store.SumExpenses(gctx, filter)
		return core.Unavailable("sum expenses", err)
	})
	g.Go(func() error {
		var err error
		groups, err = s.store.SumByCategory(gctx, filter)
		return core.Unavailable("sum by category", err)
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Failed to summarize month",
			"owner_id", ownerID,
			"month", m.String(),
			"error", err)
		return core.SummaryResult{}, err
	}

	if totals.Count == 0 {
		return core.EmptySummary(m), nil
	}

	ids := make([]int64, len(groups))
	for i, gr := range groups {
		ids[i] = gr.CategoryID
	}
	names, err := s.resolver.Resolve(ctx, ownerID, ids)
	if err != nil {
		return core.SummaryResult{}, err
	}

	byCategory := make([]core.CategoryTotal, 0, len(groups))
	for _, gr := range groups {
		gr.CategoryName = names.Name(gr.CategoryID)
		byCategory = append(byCategory, gr)
	}
	core.SortByTotal(byCategory)

	return core.SummaryResult{
		Month:      m.String(),
		TotalSpend: totals.Sum,
		Count:      totals.Count,
		ByCategory: byCategory,
	}, nil
}
