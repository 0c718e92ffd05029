package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestComputeExclusiveScenario(t *testing.T) {
	// two work items at 5000/h, 10% added on top
	work := []WorkItem{
		{Date: NewDate(2024, 6, 3), Description: "development", Hours: 8, Rate: Money{Yen: 5000}},
		{Date: NewDate(2024, 6, 4), Description: "meeting", Hours: 4, Rate: Money{Yen: 5000}},
	}
	inv, err := Compute(InvoiceMeta{InvoiceDate: NewDate(2024, 6, 30)}, work, nil,
		TaxConfig{Rate: 10, Mode: TaxExclusive}, RateConfig{Mode: RatePerItem})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Subtotal.Yen != 60000 || inv.Tax.Yen != 6000 || inv.Total.Yen != 66000 {
		t.Fatalf("expected 60000/6000/66000, got %d/%d/%d", inv.Subtotal.Yen, inv.Tax.Yen, inv.Total.Yen)
	}
	if inv.DueDate.String() != "2024-07-31" {
		t.Errorf("expected due 2024-07-31, got %s", inv.DueDate)
	}
}

func TestComputeInclusiveScenario(t *testing.T) {
	// entered amount already contains 10% tax
	work := []WorkItem{
		{Date: NewDate(2024, 6, 3), Description: "development", Hours: 22, Rate: Money{Yen: 5000}},
	}
	inv, err := Compute(InvoiceMeta{InvoiceDate: NewDate(2024, 6, 30)}, work, nil,
		TaxConfig{Rate: 10, Mode: TaxInclusive}, RateConfig{Mode: RatePerItem})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Subtotal.Yen != 100000 || inv.Tax.Yen != 10000 || inv.Total.Yen != 110000 {
		t.Fatalf("expected 100000/10000/110000, got %d/%d/%d", inv.Subtotal.Yen, inv.Tax.Yen, inv.Total.Yen)
	}
}

func TestComputeWithExpenses(t *testing.T) {
	// expenses join the total but never the tax base
	work := []WorkItem{
		{Date: NewDate(2024, 6, 3), Description: "development", Hours: 10, Rate: Money{Yen: 5000}},
	}
	expenses := []ExpenseItem{
		{Date: NewDate(2024, 6, 5), Location: "Tokyo Station", Method: "train", Amount: Money{Yen: 1500}},
	}
	inv, err := Compute(InvoiceMeta{InvoiceDate: NewDate(2024, 6, 30)}, work, expenses,
		TaxConfig{Rate: 8, Mode: TaxExclusive}, RateConfig{Mode: RatePerItem})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Tax.Yen != 4000 || inv.Total.Yen != 55500 {
		t.Fatalf("expected tax 4000 total 55500, got %d/%d", inv.Tax.Yen, inv.Total.Yen)
	}
	if inv.ExpenseTotal.Yen != 1500 || inv.CombinedSubtotal.Yen != 51500 {
		t.Fatalf("expected expense 1500 combined 51500, got %d/%d", inv.ExpenseTotal.Yen, inv.CombinedSubtotal.Yen)
	}
}

func TestComputeEmptyInput(t *testing.T) {
	inv, err := Compute(InvoiceMeta{}, []WorkItem{{}, {}}, []ExpenseItem{{}},
		TaxConfig{Rate: 10, Mode: TaxExclusive}, RateConfig{Mode: RateGlobal})
	if err != nil {
		t.Fatalf("empty input must not error, got %v", err)
	}
	if inv.Total.Yen != 0 || len(inv.Work) != 0 || len(inv.Expenses) != 0 {
		t.Fatalf("expected zeroed invoice, got %+v", inv)
	}
	if !inv.DueDate.IsZero() {
		t.Errorf("expected unset due date, got %s", inv.DueDate)
	}
}

func TestComputeValidationError(t *testing.T) {
	work := []WorkItem{{Description: "dev", Hours: -2, Rate: Money{Yen: 5000}}}
	_, err := Compute(InvoiceMeta{}, work, nil,
		TaxConfig{Rate: 10, Mode: TaxExclusive}, RateConfig{Mode: RatePerItem})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Field == "" || verr.Error() == "" {
		t.Errorf("validation error must name the field: %+v", verr)
	}
}

func TestComputeDeterministic(t *testing.T) {
	meta := InvoiceMeta{InvoiceDate: NewDate(2024, 6, 30)}
	work := []WorkItem{
		{Date: NewDate(2024, 6, 3), Description: "development", Hours: 7.5, Rate: Money{Yen: 5500}},
	}
	expenses := []ExpenseItem{
		{Date: NewDate(2024, 6, 5), Location: "Shinjuku", Method: "taxi", Amount: Money{Yen: 2300}},
	}
	tax := TaxConfig{Rate: 10, Mode: TaxInclusive}
	rates := RateConfig{Mode: RatePerItem}

	first, err := Compute(meta, work, expenses, tax, rates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Compute(meta, work, expenses, tax, rates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different results:\n%+v\n%+v", first, second)
	}
}

func TestComputeSubtotalIsSumOfRoundedLines(t *testing.T) {
	// 1.5 * 333 rounds per item; the subtotal sums rounded amounts
	work := []WorkItem{
		{Date: NewDate(2024, 6, 3), Description: "a", Hours: 1.5, Rate: Money{Yen: 333}},
		{Date: NewDate(2024, 6, 4), Description: "b", Hours: 1.5, Rate: Money{Yen: 333}},
	}
	inv, err := Compute(InvoiceMeta{}, work, nil,
		TaxConfig{Rate: 0, Mode: TaxExclusive}, RateConfig{Mode: RatePerItem})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum int64
	for _, line := range inv.Work {
		sum += line.Amount.Yen
	}
	if inv.Subtotal.Yen != sum || inv.Subtotal.Yen != 1000 {
		t.Fatalf("expected subtotal 1000 from rounded lines, got %d (sum %d)", inv.Subtotal.Yen, sum)
	}
}
