package core

import (
	"errors"
	"testing"
)

func perItem() RateConfig {
	return RateConfig{Mode: RatePerItem}
}

func TestNormalizeWorkAmounts(t *testing.T) {
	items := []WorkItem{
		{Date: NewDate(2024, 6, 3), Description: "development", Hours: 8, Rate: Money{Yen: 5000}},
		{Date: NewDate(2024, 6, 4), Description: "meeting", Hours: 1.5, Rate: Money{Yen: 333}},
	}
	lines, err := NormalizeWork(items, perItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Amount.Yen != 40000 {
		t.Errorf("expected 40000, got %d", lines[0].Amount.Yen)
	}
	// 1.5 * 333 = 499.5, rounded per item
	if lines[1].Amount.Yen != 500 {
		t.Errorf("expected 500, got %d", lines[1].Amount.Yen)
	}
}

func TestNormalizeWorkDropsBlankRows(t *testing.T) {
	items := []WorkItem{
		{},
		{Date: NewDate(2024, 6, 3), Description: "development", Hours: 2, Rate: Money{Yen: 4000}},
		{},
	}
	lines, err := NormalizeWork(items, perItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected blank rows dropped, got %d lines", len(lines))
	}
}

func TestNormalizeWorkOtherCategory(t *testing.T) {
	items := []WorkItem{
		{Date: NewDate(2024, 6, 3), Description: CategoryOther, DescriptionOther: "server migration", Hours: 3, Rate: Money{Yen: 6000}},
	}
	lines, err := NormalizeWork(items, perItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines[0].Description != "server migration" {
		t.Errorf("expected override text, got %q", lines[0].Description)
	}

	items[0].DescriptionOther = "  "
	_, err = NormalizeWork(items, perItem())
	var verr *ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, ErrMissingOtherText) {
		t.Fatalf("expected ErrMissingOtherText, got %v", err)
	}
	if verr.Field != "work_items[0].description_other" {
		t.Errorf("unexpected field %q", verr.Field)
	}
}

func TestNormalizeWorkRejectsBadRows(t *testing.T) {
	cases := []struct {
		name string
		item WorkItem
		want error
	}{
		{"zero hours", WorkItem{Description: "dev", Hours: 0, Rate: Money{Yen: 5000}}, ErrInvalidHours},
		{"negative hours", WorkItem{Description: "dev", Hours: -1, Rate: Money{Yen: 5000}}, ErrInvalidHours},
		{"missing rate", WorkItem{Description: "dev", Hours: 2}, ErrInvalidRate},
		{"missing description", WorkItem{Hours: 2, Rate: Money{Yen: 5000}}, ErrEmptyDescription},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeWork([]WorkItem{tc.item}, perItem())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNormalizeWorkGlobalRate(t *testing.T) {
	items := []WorkItem{
		{Date: NewDate(2024, 6, 3), Description: "dev", Hours: 2, Rate: Money{Yen: 9999}},
		{Date: NewDate(2024, 6, 4), Description: "dev", Hours: 3},
	}
	lines, err := NormalizeWork(items, RateConfig{Mode: RateGlobal, Global: Money{Yen: 4000}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// per-item rates are ignored under the global mode
	if lines[0].Amount.Yen != 8000 || lines[1].Amount.Yen != 12000 {
		t.Errorf("expected 8000/12000, got %d/%d", lines[0].Amount.Yen, lines[1].Amount.Yen)
	}

	_, err = NormalizeWork(items, RateConfig{Mode: RateGlobal})
	if !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate for missing global rate, got %v", err)
	}
}

func TestNormalizeWorkSortsByDate(t *testing.T) {
	items := []WorkItem{
		{Date: NewDate(2024, 6, 10), Description: "later", Hours: 1, Rate: Money{Yen: 1000}},
		{Date: NewDate(2024, 6, 1), Description: "earlier", Hours: 1, Rate: Money{Yen: 1000}},
	}
	lines, err := NormalizeWork(items, perItem())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines[0].Description != "earlier" || lines[1].Description != "later" {
		t.Errorf("expected date order, got %q then %q", lines[0].Description, lines[1].Description)
	}
}

func TestNormalizeExpenses(t *testing.T) {
	items := []ExpenseItem{
		{},
		{Date: NewDate(2024, 6, 5), Location: "Tokyo Station", Method: "train", Amount: Money{Yen: 1500}},
		{Date: NewDate(2024, 6, 6), Location: "Office Depot", Method: "cash", Amount: Money{Yen: -1}},
	}
	_, err := NormalizeExpenses(items)
	var verr *ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if verr.Field != "expense_items[2].amount" {
		t.Errorf("unexpected field %q", verr.Field)
	}

	lines, err := NormalizeExpenses(items[:2])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0].Amount.Yen != 1500 {
		t.Fatalf("expected one 1500 expense, got %+v", lines)
	}
}
