package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/storage/memory"
)

var errDiskGone = errors.New("disk gone")

type fixture struct {
	store  *memory.Store
	food   core.Category
	travel core.Category
}

// newU1Fixture seeds owner U1 with two Food and one Travel expense in March 2024.
func newU1Fixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	food, err := s.CreateCategory(ctx, "U1", "Food")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	travel, _ := s.CreateCategory(ctx, "U1", "Travel")

	add := func(cat int64, cents int64, date string) {
		t.Helper()
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			t.Fatalf("parse date: %v", err)
		}
		if _, err := s.CreateExpense(ctx, core.Expense{OwnerID: "U1", CategoryID: cat, Amount: core.Money{Cents: cents}, Date: d}); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}
	add(food.ID, 10000, "2024-03-05")
	add(food.ID, 5000, "2024-03-20")
	add(travel.ID, 20000, "2024-03-10")
	return fixture{store: s, food: food, travel: travel}
}

// failingStore fails every aggregate and read call.
type failingStore struct {
	*memory.Store
	failSum, failGroup, failFind, failCount, failCategories bool
}

func (f *failingStore) SumExpenses(ctx context.Context, flt core.ExpenseFilter) (core.Totals, error) {
	if f.failSum {
		return core.Totals{}, errDiskGone
	}
	return f.Store.SumExpenses(ctx, flt)
}

func (f *failingStore) SumByCategory(ctx context.Context, flt core.ExpenseFilter) ([]core.CategoryTotal, error) {
	if f.failGroup {
		return nil, errDiskGone
	}
	return f.Store.SumByCategory(ctx, flt)
}

func (f *failingStore) FindExpenses(ctx context.Context, flt core.ExpenseFilter, w core.Window) ([]core.Expense, error) {
	if f.failFind {
		return nil, errDiskGone
	}
	return f.Store.FindExpenses(ctx, flt, w)
}

func (f *failingStore) CountExpenses(ctx context.Context, flt core.ExpenseFilter) (int64, error) {
	if f.failCount {
		return 0, errDiskGone
	}
	return f.Store.CountExpenses(ctx, flt)
}

func (f *failingStore) CategoriesByID(ctx context.Context, owner string, ids []int64) ([]core.Category, error) {
	if f.failCategories {
		return nil, errDiskGone
	}
	return f.Store.CategoriesByID(ctx, owner, ids)
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (p *recordingPublisher) PublishChange(_ context.Context, _ string, months []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, months)
	return p.err
}

type recordingListener struct {
	owners []string
	months [][]string
}

func (l *recordingListener) Invalidate(ownerID string, months []string) {
	l.owners = append(l.owners, ownerID)
	l.months = append(l.months, months)
}

func requireUnavailable(t *testing.T, err error) {
	t.Helper()
	var su *core.StoreUnavailableError
	if !errors.As(err, &su) {
		t.Fatalf("expected StoreUnavailableError, got %v", err)
	}
	if !errors.Is(err, errDiskGone) {
		t.Fatalf("cause must be preserved, got %v", err)
	}
}

func requireValidation(t *testing.T, err error) {
	t.Helper()
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
