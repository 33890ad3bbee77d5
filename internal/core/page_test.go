package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{3, 2, 2},
		{100, 100, 1},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.limit); got != tc.want {
			t.Fatalf("TotalPages(%d,%d)=%d want %d", tc.total, tc.limit, got, tc.want)
		}
	}
}

func TestListQueryNormalize(t *testing.T) {
	q, err := ListQuery{}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Page != DefaultPage || q.Limit != DefaultLimit {
		t.Fatalf("defaults not applied: %+v", q)
	}
	if w := (ListQuery{Page: 3, Limit: 20}).Window(); w.Offset != 40 || w.Limit != 20 {
		t.Fatalf("unexpected window %+v", w)
	}

	bads := []ListQuery{{Page: -1}, {Limit: -5}, {Limit: 101}, {CategoryID: -1}}
	for i, b := range bads {
		_, err := b.Normalize()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d: expected ValidationError, got %v", i, err)
		}
	}
}

func TestCategoryRefJSONShapes(t *testing.T) {
	b, _ := json.Marshal(CategoryRef{ID: 4, Name: "Food", Resolved: true})
	if string(b) != `{"id":4,"name":"Food"}` {
		t.Fatalf("resolved shape: %s", b)
	}
	b, _ = json.Marshal(CategoryRef{ID: 4})
	if string(b) != `4` {
		t.Fatalf("raw shape: %s", b)
	}
}

func TestCategoryNamesSentinel(t *testing.T) {
	names := CategoryNames{1: "Food"}
	if names.Name(1) != "Food" || names.Name(99) != UnknownCategoryName {
		t.Fatalf("unexpected names")
	}
	if _, ok := names.Lookup(99); ok {
		t.Fatalf("lookup of missing id must report false")
	}
}
