package services

import (
	"context"
	"log/slog"

	"spendwise/internal/core"
)

type categoryStore interface {
	CategoryWriter
	CountExpenses(ctx context.Context, f core.ExpenseFilter) (int64, error)
}

// CategoryService manages an owner's categories.
type CategoryService struct {
	changeNotifier
	store categoryStore
}

func NewCategoryService(store categoryStore, publisher ChangePublisher) *CategoryService {
	return &CategoryService{
		changeNotifier: changeNotifier{publisher: publisher},
		store:          store,
	}
}

func (s *CategoryService) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, core.Unavailable("list categories", err)
	}
	if cats == nil {
		cats = []core.Category{}
	}
	return cats, nil
}

// CreateCategory adds a category. Names are unique per owner regardless of case.
func (s *CategoryService) CreateCategory(ctx context.Context, ownerID, name string) (core.Category, error) {
	if ownerID == "" {
		return core.Category{}, core.NewValidationError("owner", core.ErrEmptyOwner)
	}
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return core.Category{}, core.NewValidationError("name", err)
	}
	if err := s.ensureNameFree(ctx, ownerID, name, 0); err != nil {
		return core.Category{}, err
	}
	c, err := s.store.CreateCategory(ctx, ownerID, name)
	if err != nil {
		return core.Category{}, core.Unavailable("create category", err)
	}
	slog.InfoContext(ctx, "Category created", "owner_id", ownerID, "category_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *CategoryService) RenameCategory(ctx context.Context, ownerID string, id int64, name string) (core.Category, error) {
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return core.Category{}, core.NewValidationError("name", err)
	}
	if err := s.ensureNameFree(ctx, ownerID, name, id); err != nil {
		return core.Category{}, err
	}
	c, err := s.store.RenameCategory(ctx, ownerID, id, name)
	if err != nil {
		return core.Category{}, core.Unavailable("rename category", err)
	}
	// Names appear in every cached summary of the owner.
	s.notify(ctx, ownerID)
	return c, nil
}

// DeleteCategory removes a category that no expense references.
func (s *CategoryService) DeleteCategory(ctx context.Context, ownerID string, id int64) error {
	if _, err := s.store.GetCategory(ctx, ownerID, id); err != nil {
		return core.Unavailable("get category", err)
	}
	n, err := s.store.CountExpenses(ctx, core.ExpenseFilter{OwnerID: ownerID, CategoryID: id})
	if err != nil {
		return core.Unavailable("count expenses", err)
	}
	if n > 0 {
		return core.NewConflictError("Cannot delete category: it is used by %d expense(s). Remove or reassign them first.", n)
	}
	if err := s.store.DeleteCategory(ctx, ownerID, id); err != nil {
		return core.Unavailable("delete category", err)
	}
	slog.InfoContext(ctx, "Category deleted", "owner_id", ownerID, "category_id", id)
	s.notify(ctx, ownerID)
	return nil
}

// CreateDefaultCategories seeds core.DefaultCategories, skipping names the
// owner already has. It returns the categories that were created.
func (s *CategoryService) CreateDefaultCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	if ownerID == "" {
		return nil, core.NewValidationError("owner", core.ErrEmptyOwner)
	}
	created := []core.Category{}
	for _, name := range core.DefaultCategories {
		_, exists, err := s.store.CategoryByName(ctx, ownerID, name)
		if err != nil {
			return nil, core.Unavailable("get category by name", err)
		}
		if exists {
			continue
		}
		c, err := s.store.CreateCategory(ctx, ownerID, name)
		if err != nil {
			return nil, core.Unavailable("create category", err)
		}
		created = append(created, c)
	}
	slog.InfoContext(ctx, "Default categories seeded", "owner_id", ownerID, "created", len(created))
	return created, nil
}

func (s *CategoryService) ensureNameFree(ctx context.Context, ownerID, name string, self int64) error {
	existing, ok, err := s.store.CategoryByName(ctx, ownerID, name)
	if err != nil {
		return core.Unavailable("get category by name", err)
	}
	if ok && existing.ID != self {
		return core.NewConflictError("Category %q already exists", name)
	}
	return nil
}
