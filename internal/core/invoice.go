package core

// ComputedInvoice is the full derived state of an invoice: normalized
// line items, tax breakdown and grand total, plus the resolved due
// date. It is a pure function of its inputs and safe to persist as the
// authoritative figures.
type ComputedInvoice struct {
	Work             []LineItem
	Expenses         []ExpenseLine
	Subtotal         Money // work portion, net of tax in inclusive mode
	Tax              Money
	TaxRate          float64
	TaxMode          TaxMode
	WorkTotal        Money // work portion including tax
	ExpenseTotal     Money
	CombinedSubtotal Money // Subtotal + ExpenseTotal
	Total            Money // WorkTotal + ExpenseTotal
	DueDate          Date
}

// Compute derives the invoice figures from a raw input snapshot. With
// nothing to bill (every row blank or absent) it returns a zeroed
// invoice rather than an error, so an empty form previews as all
// zeros. Invalid rows or configuration yield a *ValidationError.
func Compute(meta InvoiceMeta, work []WorkItem, expenses []ExpenseItem, tax TaxConfig, rates RateConfig) (*ComputedInvoice, error) {
	if !hasInput(work, expenses) {
		return &ComputedInvoice{
			Work:     []LineItem{},
			Expenses: []ExpenseLine{},
			TaxRate:  tax.Rate,
			TaxMode:  tax.Mode,
		}, nil
	}

	lines, err := NormalizeWork(work, rates)
	if err != nil {
		return nil, err
	}
	expLines, err := NormalizeExpenses(expenses)
	if err != nil {
		return nil, err
	}
	breakdown, err := ApplyTax(lines, tax)
	if err != nil {
		return nil, err
	}

	var expenseTotal Money
	for _, e := range expLines {
		expenseTotal = expenseTotal.Add(e.Amount)
	}

	return &ComputedInvoice{
		Work:             lines,
		Expenses:         expLines,
		Subtotal:         breakdown.Subtotal,
		Tax:              breakdown.Tax,
		TaxRate:          tax.Rate,
		TaxMode:          tax.Mode,
		WorkTotal:        breakdown.Total,
		ExpenseTotal:     expenseTotal,
		CombinedSubtotal: breakdown.Subtotal.Add(expenseTotal),
		Total:            breakdown.Total.Add(expenseTotal),
		DueDate:          ResolveDueDate(meta.DueDate, meta.InvoiceDate, lines),
	}, nil
}

func hasInput(work []WorkItem, expenses []ExpenseItem) bool {
	for _, w := range work {
		if !w.IsBlank() {
			return true
		}
	}
	for _, e := range expenses {
		if !e.IsBlank() {
			return true
		}
	}
	return false
}
