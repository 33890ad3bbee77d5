package services

import (
	"context"

	"spendwise/internal/core"
)

// Record store ports, implemented by storage.Repository and memory.Store.
type (
	ExpenseReader interface {
		FindExpenses(ctx context.Context, f core.ExpenseFilter, w core.Window) ([]core.Expense, error)
		CountExpenses(ctx context.Context, f core.ExpenseFilter) (int64, error)
	}

	ExpenseAggregator interface {
		SumExpenses(ctx context.Context, f core.ExpenseFilter) (core.Totals, error)
		// SumByCategory groups by category id; names are filled in by the resolver.
		SumByCategory(ctx context.Context, f core.ExpenseFilter) ([]core.CategoryTotal, error)
	}

	CategoryFinder interface {
		CategoriesByID(ctx context.Context, ownerID string, ids []int64) ([]core.Category, error)
	}

	ExpenseWriter interface {
		GetExpense(ctx context.Context, ownerID string, id int64) (core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, ownerID string, id int64) error
	}

	CategoryWriter interface {
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		GetCategory(ctx context.Context, ownerID string, id int64) (core.Category, error)
		CategoryByName(ctx context.Context, ownerID, name string) (core.Category, bool, error)
		CreateCategory(ctx context.Context, ownerID, name string) (core.Category, error)
		RenameCategory(ctx context.Context, ownerID string, id int64, name string) (core.Category, error)
		DeleteCategory(ctx context.Context, ownerID string, id int64) error
	}

	// RecordStore is the full store surface wired by the backend factory.
	RecordStore interface {
		ExpenseReader
		ExpenseAggregator
		CategoryFinder
		ExpenseWriter
		CategoryWriter
		Ping(ctx context.Context) error
		Close() error
	}

	// ChangePublisher fans out the months touched by a write.
	ChangePublisher interface {
		PublishChange(ctx context.Context, ownerID string, months []string) error
	}

	// ChangeListener is told about local writes, for cache invalidation.
	ChangeListener interface {
		Invalidate(ownerID string, months []string)
	}

	// SummaryExporter publishes a computed summary outside the store.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, ownerID string, s core.SummaryResult) (int, error)
	}
)
