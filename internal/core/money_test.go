package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}{Money{Cents: 15000}, Money{Cents: 1250}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"a":150,"b":12.5}` {
		t.Fatalf("unexpected json %s", b)
	}

	var m Money
	if err := json.Unmarshal([]byte(`19.99`), &m); err != nil || m.Cents != 1999 {
		t.Fatalf("unmarshal number: %v %d", err, m.Cents)
	}
	if err := json.Unmarshal([]byte(`"7.5"`), &m); err != nil || m.Cents != 750 {
		t.Fatalf("unmarshal string: %v %d", err, m.Cents)
	}
	if err := json.Unmarshal([]byte(`-3`), &m); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestMoneySumIsExact(t *testing.T) {
	// 0.1 added ten times drifts in float64; cents do not.
	var sum Money
	for i := 0; i < 10; i++ {
		sum = sum.Add(Money{Cents: 10})
	}
	if sum.String() != "1" {
		t.Fatalf("expected 1, got %s", sum)
	}
}
