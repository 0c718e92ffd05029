package core

import "testing"

func TestRound(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{0.6, 1},
		{2.5, 3},
		{499.5, 500},
		{-0.4, 0},
		{-0.5, -1},
		{-2.5, -3},
		{1234, 1234},
	}
	for _, tc := range cases {
		if got := Round(tc.in); got != tc.out {
			t.Fatalf("Round(%v) expected %d, got %d", tc.in, tc.out, got)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "0"},
		{5, "5"},
		{500, "500"},
		{1500, "1,500"},
		{60000, "60,000"},
		{1234567, "1,234,567"},
		{-1500, "-1,500"},
	}
	for _, tc := range cases {
		if got := (Money{Yen: tc.in}).String(); got != tc.out {
			t.Fatalf("Money{%d}.String() expected %q, got %q", tc.in, tc.out, got)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"8", 8, true},
		{"7.5", 7.5, true},
		{"7,5", 7.5, true},
		{" 10 ", 10, true},
		{"", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimal(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseYen(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"5000", 5000, true},
		{" 0 ", 0, true},
		{"", 0, true},
		{"-100", -100, true},
		{"12.5", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseYen(tc.in)
		if tc.ok {
			if err != nil || got.Yen != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Yen, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}
