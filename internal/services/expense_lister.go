package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/core"
)

// ExpenseLister produces filtered, paginated expense listings.
type ExpenseLister struct {
	store    ExpenseReader
	resolver *CategoryResolver
}

func NewExpenseLister(store ExpenseReader, resolver *CategoryResolver) *ExpenseLister {
	return &ExpenseLister{store: store, resolver: resolver}
}

// List returns one page of the owner's expenses, newest first. The page and
// the total count are fetched concurrently; either failing fails the call.
func (l *ExpenseLister) List(ctx context.Context, ownerID string, q core.ListQuery) (core.ListResult, error) {
	if ownerID == "" {
		return core.ListResult{}, core.NewValidationError("owner", core.ErrEmptyOwner)
	}
	q, err := q.Normalize()
	if err != nil {
		return core.ListResult{}, err
	}

	filter := core.ExpenseFilter{OwnerID: ownerID, CategoryID: q.CategoryID}
	if q.Month != "" {
		r, err := core.MonthRange(q.Month)
		if err != nil {
			return core.ListResult{}, err
		}
		filter.Range = &r
	}

	var (
		page  []core.Expense
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = l.store.FindExpenses(gctx, filter, q.Window())
		return core.Unavailable("find expenses", err)
	})
	g.Go(func() error {
		var err error
		total, err = l.store.CountExpenses(gctx, filter)
		return core.Unavailable("count expenses", err)
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Failed to list expenses",
			"owner_id", ownerID,
			"month", q.Month,
			"error", err)
		return core.ListResult{}, err
	}

	ids := make([]int64, len(page))
	for i, e := range page {
		ids[i] = e.CategoryID
	}
	cats, err := l.resolver.Lookup(ctx, ownerID, ids)
	if err != nil {
		return core.ListResult{}, err
	}

	items := make([]core.ExpenseItem, len(page))
	for i, e := range page {
		ref := core.CategoryRef{ID: e.CategoryID}
		if c, ok := cats[e.CategoryID]; ok {
			ref.Name, ref.Resolved = c.Name, true
		}
		items[i] = core.ExpenseItem{
			ID:         e.ID,
			OwnerID:    e.OwnerID,
			CategoryID: ref,
			Amount:     e.Amount,
			Date:       e.Date,
			Note:       e.Note,
			CreatedAt:  e.CreatedAt,
			UpdatedAt:  e.UpdatedAt,
		}
	}

	return core.ListResult{
		Expenses:   items,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: core.TotalPages(total, q.Limit),
	}, nil
}
