package core

import (
	"fmt"
	"sort"
	"strings"
)

// LineItem is a billable entry after normalization: label resolved,
// effective rate applied, amount rounded. Amounts on line items are
// final; downstream stages only sum them.
type LineItem struct {
	Date        Date
	Description string
	Hours       float64
	Rate        Money
	Amount      Money
}

// ExpenseLine is an expense entry after normalization.
type ExpenseLine struct {
	Date     Date
	Location string
	Method   string
	Amount   Money
	Memo     string
}

// NormalizeWork turns raw work items into billable line items. Blank
// rows are dropped, the "other" category sentinel is resolved to its
// free text, the effective hourly rate is chosen per the rate mode, and
// each amount is rounded independently of the others. Items are sorted
// by work date, preserving entry order within a day.
func NormalizeWork(items []WorkItem, rates RateConfig) ([]LineItem, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	lines := make([]LineItem, 0, len(items))
	for i, item := range items {
		if item.IsBlank() {
			continue
		}
		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			return nil, invalid(workField(i, "description"), ErrEmptyDescription)
		}
		if desc == CategoryOther {
			desc = strings.TrimSpace(item.DescriptionOther)
			if desc == "" {
				return nil, invalid(workField(i, "description_other"), ErrMissingOtherText)
			}
		}
		if item.Hours <= 0 {
			return nil, invalid(workField(i, "hours"), ErrInvalidHours)
		}
		rate := item.Rate
		if rates.Mode == RateGlobal {
			rate = rates.Global
		}
		if rate.Yen <= 0 {
			return nil, invalid(workField(i, "hourly_rate"), ErrInvalidRate)
		}
		lines = append(lines, LineItem{
			Date:        item.Date,
			Description: desc,
			Hours:       item.Hours,
			Rate:        rate,
			Amount:      RoundMoney(item.Hours * float64(rate.Yen)),
		})
	}
	sort.SliceStable(lines, func(a, b int) bool {
		return lines[a].Date.Before(lines[b].Date.Time)
	})
	return lines, nil
}

// NormalizeExpenses drops blank expense rows and rejects negative
// amounts. Expenses carry their entered amount unchanged; they are
// never taxed. Entries are sorted by date, stable within a day.
func NormalizeExpenses(items []ExpenseItem) ([]ExpenseLine, error) {
	lines := make([]ExpenseLine, 0, len(items))
	for i, item := range items {
		if item.IsBlank() {
			continue
		}
		if item.Amount.IsNegative() {
			return nil, invalid(expenseField(i, "amount"), ErrInvalidAmount)
		}
		lines = append(lines, ExpenseLine{
			Date:     item.Date,
			Location: strings.TrimSpace(item.Location),
			Method:   strings.TrimSpace(item.Method),
			Amount:   item.Amount,
			Memo:     strings.TrimSpace(item.Memo),
		})
	}
	sort.SliceStable(lines, func(a, b int) bool {
		return lines[a].Date.Before(lines[b].Date.Time)
	})
	return lines, nil
}

func workField(i int, name string) string {
	return fmt.Sprintf("work_items[%d].%s", i, name)
}

func expenseField(i int, name string) string {
	return fmt.Sprintf("expense_items[%d].%s", i, name)
}
