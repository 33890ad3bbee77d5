package core

import (
	"encoding/json"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListQuery holds the filters and the window of an expense listing.
// Zero Page and Limit mean "use the default".
type ListQuery struct {
	Month      string
	CategoryID int64
	Page       int
	Limit      int
}

// ExpenseFilter is the store-level form of a listing or summary filter.
type ExpenseFilter struct {
	OwnerID    string
	Range      *DateRange
	CategoryID int64
}

// Window is a skip/take page window.
type Window struct {
	Offset int
	Limit  int
}

// Normalize applies the defaults and validates the window bounds.
func (q ListQuery) Normalize() (ListQuery, error) {
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Page < 1 {
		return q, NewValidationError("page", ErrInvalidPage)
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return q, NewValidationError("limit", ErrInvalidLimit)
	}
	if q.CategoryID < 0 {
		return q, NewValidationError("categoryId", ErrInvalidReference)
	}
	return q, nil
}

// Window converts page/limit into skip/take.
func (q ListQuery) Window() Window {
	return Window{Offset: (q.Page - 1) * q.Limit, Limit: q.Limit}
}

// TotalPages is ceil(total/limit), and 0 when there is nothing to show.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return int((total + l - 1) / l)
}

// CategoryRef is the category of a listed expense: an {id, name} object when
// the category resolved, the bare id otherwise.
type CategoryRef struct {
	ID   int64
	Name string
	// Resolved is false when the category record is missing.
	Resolved bool
}

func (c CategoryRef) MarshalJSON() ([]byte, error) {
	if !c.Resolved {
		return json.Marshal(c.ID)
	}
	return json.Marshal(struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}{c.ID, c.Name})
}

// ExpenseItem is one listed expense.
type ExpenseItem struct {
	ID         int64       `json:"id"`
	OwnerID    string      `json:"ownerId"`
	CategoryID CategoryRef `json:"categoryId"`
	Amount     Money       `json:"amount"`
	Date       time.Time   `json:"date"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// ListResult is one page of expenses plus the paging totals.
type ListResult struct {
	Expenses   []ExpenseItem `json:"expenses"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

// CategoryNames maps category ids to display names.
type CategoryNames map[int64]string

// Name returns the display name or UnknownCategoryName.
func (n CategoryNames) Name(id int64) string {
	if name, ok := n[id]; ok {
		return name
	}
	return UnknownCategoryName
}

// Lookup returns the name and whether the id resolved.
func (n CategoryNames) Lookup(id int64) (string, bool) {
	name, ok := n[id]
	return name, ok
}
