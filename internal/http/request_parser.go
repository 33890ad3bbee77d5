// Package http provides the JSON API of the expense tracker.
//
// This file implements utilities for parsing and validating request data:
// listing filters, path ids and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/core"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed JSON body")

// ParseListQuery reads month, page, limit and categoryId. Absent values keep
// their defaults; present ones must be well formed.
func ParseListQuery(values url.Values) (core.ListQuery, error) {
	q := core.ListQuery{Month: strings.TrimSpace(values.Get("month"))}

	var err error
	if q.Page, err = parsePositiveInt(values, "page", core.ErrInvalidPage); err != nil {
		return q, err
	}
	if q.Limit, err = parsePositiveInt(values, "limit", core.ErrInvalidLimit); err != nil {
		return q, err
	}
	if q.Limit > core.MaxLimit {
		return q, core.NewValidationError("limit", core.ErrInvalidLimit)
	}
	if v := strings.TrimSpace(values.Get("categoryId")); v != "" {
		id, err := parseID(v)
		if err != nil {
			return q, core.NewValidationError("categoryId", err)
		}
		q.CategoryID = id
	}
	return q, nil
}

// parsePositiveInt returns 0 when key is absent.
func parsePositiveInt(values url.Values, key string, rangeErr error) (int, error) {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(key, fmt.Errorf("%w: %q is not a number", rangeErr, v))
	}
	if n < 1 {
		return 0, core.NewValidationError(key, rangeErr)
	}
	return n, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidReference, s)
	}
	return id, nil
}

// pathID reads the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		return 0, core.NewValidationError("id", err)
	}
	return id, nil
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			return core.NewValidationError("amount", core.ErrInvalidAmount)
		case errors.Is(err, io.EOF):
			return core.NewValidationError("body", fmt.Errorf("%w: empty", errMalformedBody))
		default:
			return core.NewValidationError("body", fmt.Errorf("%w: %v", errMalformedBody, err))
		}
	}
	if dec.More() {
		return core.NewValidationError("body", fmt.Errorf("%w: trailing data", errMalformedBody))
	}
	return nil
}

// expenseBody is the JSON form of an expense write. Pointers tell absent
// fields apart for partial updates.
type expenseBody struct {
	Amount     *core.Money `json:"amount"`
	Date       *string     `json:"date"`
	CategoryID *int64      `json:"categoryId"`
	Note       *string     `json:"note"`
}

// parseDate accepts YYYY-MM-DD, optionally followed by a time (RFC 3339).
// Only the calendar day is kept.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, core.NewValidationError("date", fmt.Errorf("%w: %q", core.ErrInvalidDate, s))
	}
	return core.DayOf(t.UTC()), nil
}

// toInput requires every field but the note.
func (b expenseBody) toInput() (core.ExpenseInput, error) {
	var in core.ExpenseInput
	if b.Amount == nil {
		return in, core.NewValidationError("amount", core.ErrInvalidAmount)
	}
	if b.Date == nil {
		return in, core.NewValidationError("date", core.ErrInvalidDate)
	}
	if b.CategoryID == nil {
		return in, core.NewValidationError("categoryId", core.ErrMissingCategory)
	}
	date, err := parseDate(*b.Date)
	if err != nil {
		return in, err
	}
	in = core.ExpenseInput{CategoryID: *b.CategoryID, Amount: *b.Amount, Date: date}
	if b.Note != nil {
		in.Note = *b.Note
	}
	return in, nil
}

func (b expenseBody) toPatch() (core.ExpensePatch, error) {
	p := core.ExpensePatch{CategoryID: b.CategoryID, Amount: b.Amount, Note: b.Note}
	if b.Date != nil {
		date, err := parseDate(*b.Date)
		if err != nil {
			return p, err
		}
		p.Date = &date
	}
	return p, nil
}

type categoryBody struct {
	Name string `json:"name"`
}
