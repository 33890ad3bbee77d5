package services

import (
	"context"
	"log/slog"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

// ExpenseService validates and applies expense writes, then announces the
// touched months so cached summaries can be dropped.
type ExpenseService struct {
	changeNotifier
	expenses   ExpenseWriter
	categories CategoryWriter
}

func NewExpenseService(expenses ExpenseWriter, categories CategoryWriter, publisher ChangePublisher) *ExpenseService {
	return &ExpenseService{
		changeNotifier: changeNotifier{publisher: publisher},
		expenses:       expenses,
		categories:     categories,
	}
}

// CreateExpense stores a new expense in one of the owner's categories.
func (s *ExpenseService) CreateExpense(ctx context.Context, ownerID string, in core.ExpenseInput) (core.Expense, error) {
	if ownerID == "" {
		return core.Expense{}, core.NewValidationError("owner", core.ErrEmptyOwner)
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, core.NewValidationError("expense", err)
	}
	if err := s.checkCategory(ctx, ownerID, in.CategoryID); err != nil {
		return core.Expense{}, err
	}

	e, err := s.expenses.CreateExpense(ctx, core.Expense{
		OwnerID:    ownerID,
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		Date:       core.DayOf(in.Date),
		Note:       in.Note,
	})
	if err != nil {
		return core.Expense{}, core.Unavailable("create expense", err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogExpenseCreated(ctx, ownerID, e.ID, e.CategoryID, e.Amount.Cents)

	s.notify(ctx, ownerID, core.MonthOf(e.Date).String())
	return e, nil
}

// UpdateExpense applies a partial update to one of the owner's expenses.
func (s *ExpenseService) UpdateExpense(ctx context.Context, ownerID string, id int64, patch core.ExpensePatch) (core.Expense, error) {
	if err := patch.Validate(); err != nil {
		return core.Expense{}, core.NewValidationError("expense", err)
	}
	current, err := s.expenses.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, core.Unavailable("get expense", err)
	}
	if patch.CategoryID != nil && *patch.CategoryID != current.CategoryID {
		if err := s.checkCategory(ctx, ownerID, *patch.CategoryID); err != nil {
			return core.Expense{}, err
		}
	}

	updated, err := s.expenses.UpdateExpense(ctx, patch.Apply(current))
	if err != nil {
		return core.Expense{}, core.Unavailable("update expense", err)
	}

	before, after := core.MonthOf(current.Date).String(), core.MonthOf(updated.Date).String()
	if before == after {
		s.notify(ctx, ownerID, after)
	} else {
		s.notify(ctx, ownerID, before, after)
	}
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, ownerID string, id int64) error {
	current, err := s.expenses.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.Unavailable("get expense", err)
	}
	if err := s.expenses.DeleteExpense(ctx, ownerID, id); err != nil {
		return core.Unavailable("delete expense", err)
	}

	slog.InfoContext(ctx, "Expense deleted", "owner_id", ownerID, "id", id)
	s.notify(ctx, ownerID, core.MonthOf(current.Date).String())
	return nil
}

func (s *ExpenseService) checkCategory(ctx context.Context, ownerID string, categoryID int64) error {
	if _, err := s.categories.GetCategory(ctx, ownerID, categoryID); err != nil {
		return core.Unavailable("get category", err)
	}
	return nil
}
