package core

import (
	"strings"
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestExpenseInputValidate(t *testing.T) {
	good := ExpenseInput{
		CategoryID: 1,
		Amount:     Money{Cents: 100},
		Date:       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Note:       "lunch",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []ExpenseInput{
		{CategoryID: 0, Amount: Money{Cents: 1}, Date: good.Date},
		{CategoryID: 1, Amount: Money{Cents: 0}, Date: good.Date},
		{CategoryID: 1, Amount: Money{Cents: 1}},
		{CategoryID: 1, Amount: Money{Cents: 1}, Date: good.Date, Note: strings.Repeat("x", MaxNoteLength+1)},
	}
	for i, in := range bads {
		if err := in.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNormalizeCategoryName(t *testing.T) {
	name, err := NormalizeCategoryName("  Food  ")
	if err != nil || name != "Food" {
		t.Fatalf("got %q, %v", name, err)
	}
	if _, err := NormalizeCategoryName("   "); err != ErrEmptyCategory {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if _, err := NormalizeCategoryName(strings.Repeat("a", MaxCategoryNameLength+1)); err != ErrCategoryTooLong {
		t.Fatalf("expected ErrCategoryTooLong, got %v", err)
	}
}

func TestCategoryKey(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"Food", "food", true},
		{"Café", "CAFÉ", true},
		{"Straße", "STRASSE", true},
		{" Bills ", "bills", true},
		{"Food", "Foods", false},
	}
	for _, tt := range tests {
		if got := CategoryKey(tt.a) == CategoryKey(tt.b); got != tt.same {
			t.Fatalf("CategoryKey(%q) == CategoryKey(%q) is %v, want %v", tt.a, tt.b, got, tt.same)
		}
	}
}

func TestExpensePatchApply(t *testing.T) {
	base := Expense{ID: 7, CategoryID: 1, Amount: Money{Cents: 100}, Note: "a"}
	cat := int64(2)
	note := "b"
	when := time.Date(2024, 5, 6, 15, 30, 0, 0, time.UTC)
	got := ExpensePatch{CategoryID: &cat, Note: &note, Date: &when}.Apply(base)
	if got.CategoryID != 2 || got.Note != "b" || got.Amount.Cents != 100 {
		t.Fatalf("unexpected patch result %+v", got)
	}
	if got.Date.Hour() != 0 || got.Date.Day() != 6 {
		t.Fatalf("date not truncated to day: %v", got.Date)
	}
}
