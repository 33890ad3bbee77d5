package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"spendwise/internal/core"
	"spendwise/internal/storage/memory"
)

func TestCreateCategoryDuplicates(t *testing.T) {
	svc := NewCategoryService(memory.New(), nil)
	ctx := context.Background()
	if _, err := svc.CreateCategory(ctx, "u1", "  Food "); err != nil {
		t.Fatalf("create: %v", err)
	}
	var ce *core.ConflictError
	if _, err := svc.CreateCategory(ctx, "u1", "food"); !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if _, err := svc.CreateCategory(ctx, "u1", ""); err == nil {
		t.Fatalf("expected validation error for empty name")
	}
	_, err := svc.CreateCategory(ctx, "u1", strings.Repeat("x", 101))
	requireValidation(t, err)
}

func TestDeleteCategoryBlockedWhileReferenced(t *testing.T) {
	fx := newU1Fixture(t)
	svc := NewCategoryService(fx.store, nil)

	err := svc.DeleteCategory(context.Background(), "U1", fx.food.ID)
	var ce *core.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !strings.Contains(ce.Message, "used by 2 expense(s)") {
		t.Fatalf("message must name the count: %s", ce.Message)
	}

	unused, _ := svc.CreateCategory(context.Background(), "U1", "Gifts")
	if err := svc.DeleteCategory(context.Background(), "U1", unused.ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
}

func TestRenameCategoryNotifiesAllMonths(t *testing.T) {
	fx := newU1Fixture(t)
	lis := &recordingListener{}
	svc := NewCategoryService(fx.store, nil)
	svc.OnChange(lis)

	c, err := svc.RenameCategory(context.Background(), "U1", fx.food.ID, "Groceries")
	if err != nil || c.Name != "Groceries" {
		t.Fatalf("rename: %+v %v", c, err)
	}
	if len(lis.months) != 1 || len(lis.months[0]) != 0 {
		t.Fatalf("rename must invalidate every month, got %v", lis.months)
	}
	if _, err := svc.RenameCategory(context.Background(), "U1", fx.travel.ID, "groceries"); err == nil {
		t.Fatalf("expected conflict on rename")
	}
}

func TestCreateDefaultCategoriesIsIdempotent(t *testing.T) {
	s := memory.New()
	svc := NewCategoryService(s, nil)
	ctx := context.Background()
	if _, err := svc.CreateCategory(ctx, "u1", "food"); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.CreateDefaultCategories(ctx, "u1")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(first) != len(core.DefaultCategories)-1 {
		t.Fatalf("expected %d new categories, got %d", len(core.DefaultCategories)-1, len(first))
	}
	second, err := svc.CreateDefaultCategories(ctx, "u1")
	if err != nil || len(second) != 0 {
		t.Fatalf("second seed must create nothing: %v %v", second, err)
	}
	all, _ := svc.ListCategories(ctx, "u1")
	if len(all) != len(core.DefaultCategories) {
		t.Fatalf("expected %d categories, got %d", len(core.DefaultCategories), len(all))
	}
}

func TestListCategoriesKeepsCreationOrder(t *testing.T) {
	svc := NewCategoryService(memory.New(), nil)
	ctx := context.Background()
	for _, name := range []string{"Zeta", "alpha", "Ärger"} {
		if _, err := svc.CreateCategory(ctx, "u1", name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if _, err := svc.CreateCategory(ctx, "u1", "ärger"); err == nil {
		t.Fatalf("expected conflict for non-ASCII case variant")
	}

	all, err := svc.ListCategories(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Name != "Zeta" || all[1].Name != "alpha" || all[2].Name != "Ärger" {
		t.Fatalf("order = %+v", all)
	}
}
