package core

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const (
	MaxCategoryNameLength = 100
	MaxNoteLength         = 500

	// UnknownCategoryName is shown for category ids that no longer resolve.
	UnknownCategoryName = "Unknown"
)

// DefaultCategories are seeded for every new owner.
var DefaultCategories = []string{"Food", "Travel", "Shopping", "Bills"}

type (
	Money struct {
		Cents int64
	}

	Expense struct {
		ID         int64     `json:"id"`
		OwnerID    string    `json:"ownerId"`
		CategoryID int64     `json:"categoryId"`
		Amount     Money     `json:"amount"`
		Date       time.Time `json:"date"` // UTC, day granularity
		Note       string    `json:"note"`
		CreatedAt  time.Time `json:"createdAt"`
		UpdatedAt  time.Time `json:"updatedAt"`
	}

	Category struct {
		ID        int64     `json:"id"`
		OwnerID   string    `json:"ownerId"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// ExpenseInput carries the user-editable fields of an expense.
	ExpenseInput struct {
		CategoryID int64
		Amount     Money
		Date       time.Time
		Note       string
	}

	// ExpensePatch is a partial update; nil fields are left untouched.
	ExpensePatch struct {
		CategoryID *int64
		Amount     *Money
		Date       *time.Time
		Note       *string
	}
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyOwner       = errors.New("empty owner")
	ErrEmptyCategory    = errors.New("empty category name")
	ErrCategoryTooLong  = errors.New("category name too long (max 100 characters)")
	ErrNoteTooLong      = errors.New("note too long (max 500 characters)")
	ErrMissingCategory  = errors.New("category is required")
	ErrInvalidPage      = errors.New("page must be at least 1")
	ErrInvalidLimit     = errors.New("limit must be between 1 and 100")
	ErrInvalidReference = errors.New("invalid identifier")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeCategoryName trims the name and checks its length.
func NormalizeCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyCategory
	}
	if len([]rune(name)) > MaxCategoryNameLength {
		return "", ErrCategoryTooLong
	}
	return name, nil
}

// CategoryKey is the case-folded form of a category name. Two names with the
// same key are the same category for uniqueness checks.
func CategoryKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func (in ExpenseInput) Validate() error {
	if in.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return ErrInvalidDate
	}
	if len([]rune(in.Note)) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

func (p ExpensePatch) Validate() error {
	if p.CategoryID != nil && *p.CategoryID <= 0 {
		return ErrMissingCategory
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Date != nil && p.Date.IsZero() {
		return ErrInvalidDate
	}
	if p.Note != nil && len([]rune(*p.Note)) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// Apply returns a copy of e with the patch applied.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Date != nil {
		e.Date = DayOf(*p.Date)
	}
	if p.Note != nil {
		e.Note = *p.Note
	}
	return e
}
