package core

import "testing"

func TestResolveDueDateEndOfFollowingMonth(t *testing.T) {
	cases := []struct {
		name   string
		anchor Date
		want   string
	}{
		{"leap february", NewDate(2024, 1, 31), "2024-02-29"},
		{"plain february", NewDate(2023, 1, 15), "2023-02-28"},
		{"year rollover", NewDate(2024, 12, 15), "2025-01-31"},
		{"thirty day month", NewDate(2024, 5, 1), "2024-06-30"},
		{"mid month", NewDate(2024, 6, 3), "2024-07-31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveDueDate(Date{}, tc.anchor, nil)
			if got.String() != tc.want {
				t.Fatalf("anchor %s expected %s, got %s", tc.anchor, tc.want, got)
			}
		})
	}
}

func TestResolveDueDateAnchorsOnLatestWorkDate(t *testing.T) {
	work := []LineItem{
		{Date: NewDate(2024, 6, 3)},
		{Date: NewDate(2024, 7, 10)},
		{Date: NewDate(2024, 6, 20)},
	}
	got := ResolveDueDate(Date{}, NewDate(2024, 6, 1), work)
	if got.String() != "2024-08-31" {
		t.Fatalf("expected 2024-08-31, got %s", got)
	}
}

func TestResolveDueDateWorkDateBeforeInvoiceDate(t *testing.T) {
	// The latest work date anchors even when it precedes the invoice
	// date; the due date may then come before the invoice date.
	work := []LineItem{{Date: NewDate(2024, 1, 15)}}
	got := ResolveDueDate(Date{}, NewDate(2024, 3, 10), work)
	if got.String() != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %s", got)
	}
}

func TestResolveDueDateUndatedWorkFallsBackToInvoiceDate(t *testing.T) {
	work := []LineItem{{Description: "dev"}, {Description: "review"}}
	got := ResolveDueDate(Date{}, NewDate(2024, 6, 1), work)
	if got.String() != "2024-07-31" {
		t.Fatalf("expected 2024-07-31, got %s", got)
	}
}

func TestResolveDueDateExplicitWins(t *testing.T) {
	explicit := NewDate(2024, 6, 10)
	got := ResolveDueDate(explicit, NewDate(2024, 6, 1), []LineItem{{Date: NewDate(2024, 7, 1)}})
	if !got.Equal(explicit.Time) {
		t.Fatalf("expected explicit date %s, got %s", explicit, got)
	}
}

func TestResolveDueDateNoAnchor(t *testing.T) {
	got := ResolveDueDate(Date{}, Date{}, nil)
	if !got.IsZero() {
		t.Fatalf("expected unset due date, got %s", got)
	}
}

func TestResolveDueDateIdempotent(t *testing.T) {
	work := []LineItem{{Date: NewDate(2024, 1, 31)}}
	first := ResolveDueDate(Date{}, NewDate(2024, 1, 5), work)
	second := ResolveDueDate(Date{}, NewDate(2024, 1, 5), work)
	if !first.Equal(second.Time) {
		t.Fatalf("resolver not idempotent: %s vs %s", first, second)
	}
}
