// Package memory is an in-process record store used for development and
// tests. It follows the ordering and scoping rules of the SQL repository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"spendwise/internal/core"
)

type Store struct {
	mu         sync.RWMutex
	expenses   []core.Expense
	categories []core.Category
	nextExp    int64
	nextCat    int64
	now        func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func matches(e core.Expense, f core.ExpenseFilter) bool {
	if e.OwnerID != f.OwnerID {
		return false
	}
	if f.Range != nil && !f.Range.Contains(e.Date) {
		return false
	}
	return f.CategoryID == 0 || e.CategoryID == f.CategoryID
}

func (s *Store) filter(f core.ExpenseFilter) []core.Expense {
	var out []core.Expense
	for _, e := range s.expenses {
		if matches(e, f) {
			out = append(out, e)
		}
	}
	return out
}

// FindExpenses returns one window of matching expenses, newest first with
// ascending id as tiebreak.
func (s *Store) FindExpenses(ctx context.Context, f core.ExpenseFilter, w core.Window) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := s.filter(f)
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return all[i].ID < all[j].ID
	})
	if w.Offset >= len(all) {
		return nil, nil
	}
	end := w.Offset + w.Limit
	if end > len(all) {
		end = len(all)
	}
	return append([]core.Expense(nil), all[w.Offset:end]...), nil
}

func (s *Store) CountExpenses(ctx context.Context, f core.ExpenseFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filter(f))), nil
}

func (s *Store) SumExpenses(ctx context.Context, f core.ExpenseFilter) (core.Totals, error) {
	if err := ctx.Err(); err != nil {
		return core.Totals{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var t core.Totals
	for _, e := range s.filter(f) {
		t.Sum = t.Sum.Add(e.Amount)
		t.Count++
	}
	return t, nil
}

func (s *Store) SumByCategory(ctx context.Context, f core.ExpenseFilter) ([]core.CategoryTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := map[int64]int{}
	var out []core.CategoryTotal
	for _, e := range s.filter(f) {
		i, ok := idx[e.CategoryID]
		if !ok {
			i = len(out)
			idx[e.CategoryID] = i
			out = append(out, core.CategoryTotal{CategoryID: e.CategoryID})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
	}
	return out, nil
}

func (s *Store) GetExpense(ctx context.Context, ownerID string, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.expenseIndex(ownerID, id); i >= 0 {
		return s.expenses[i], nil
	}
	return core.Expense{}, core.NewNotFoundError("expense", id)
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExp++
	now := s.now().UTC()
	e.ID = s.nextExp
	e.CreatedAt, e.UpdatedAt = now, now
	s.expenses = append(s.expenses, e)
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(e.OwnerID, e.ID)
	if i < 0 {
		return core.Expense{}, core.NewNotFoundError("expense", e.ID)
	}
	e.CreatedAt = s.expenses[i].CreatedAt
	e.UpdatedAt = s.now().UTC()
	s.expenses[i] = e
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, ownerID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.expenseIndex(ownerID, id)
	if i < 0 {
		return core.NewNotFoundError("expense", id)
	}
	s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
	return nil
}

func (s *Store) expenseIndex(ownerID string, id int64) int {
	for i, e := range s.expenses {
		if e.ID == id && e.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

func (s *Store) CategoriesByID(ctx context.Context, ownerID string, ids []int64) ([]core.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.categories {
		if _, ok := want[c.ID]; ok && c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListCategories returns the owner's categories, oldest first.
func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	s.mu.RLock()
	var out []core.Category
	for _, c := range s.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, ownerID string, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.categoryIndex(ownerID, id); i >= 0 {
		return s.categories[i], nil
	}
	return core.Category{}, core.NewNotFoundError("category", id)
}

func (s *Store) CategoryByName(ctx context.Context, ownerID, name string) (core.Category, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.nameIndex(ownerID, name, 0); i >= 0 {
		return s.categories[i], true, nil
	}
	return core.Category{}, false, nil
}

func (s *Store) CreateCategory(ctx context.Context, ownerID, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nameIndex(ownerID, name, 0) >= 0 {
		return core.Category{}, core.NewConflictError("Category %q already exists", name)
	}
	s.nextCat++
	c := core.Category{ID: s.nextCat, OwnerID: ownerID, Name: name, CreatedAt: s.now().UTC()}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) RenameCategory(ctx context.Context, ownerID string, id int64, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(ownerID, id)
	if i < 0 {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	if s.nameIndex(ownerID, name, id) >= 0 {
		return core.Category{}, core.NewConflictError("Category %q already exists", name)
	}
	s.categories[i].Name = name
	return s.categories[i], nil
}

func (s *Store) DeleteCategory(ctx context.Context, ownerID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.categoryIndex(ownerID, id)
	if i < 0 {
		return core.NewNotFoundError("category", id)
	}
	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	return nil
}

func (s *Store) categoryIndex(ownerID string, id int64) int {
	for i, c := range s.categories {
		if c.ID == id && c.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

// nameIndex finds a category with the same name key, ignoring the category skip.
func (s *Store) nameIndex(ownerID, name string, skip int64) int {
	key := core.CategoryKey(name)
	for i, c := range s.categories {
		if c.OwnerID == ownerID && c.ID != skip && core.CategoryKey(c.Name) == key {
			return i
		}
	}
	return -1
}
