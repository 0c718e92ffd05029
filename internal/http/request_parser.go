// Package http provides the web surface: the entry page, the invoice
// JSON API, PDF downloads and draft persistence.
//
// This file maps the snake_case JSON the form submits onto the raw
// input types the engine consumes. Numeric fields arrive as strings,
// exactly as typed into the form, so the engine's lenient parsers can
// apply their empty-means-zero rules.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"seikyu/internal/core"
	"seikyu/internal/services"
)

// maxBodyBytes caps request bodies; invoices and drafts are small.
const maxBodyBytes = 1 << 20

type workItemPayload struct {
	Date             string `json:"date"`
	Description      string `json:"description"`
	DescriptionOther string `json:"description_other"`
	Hours            string `json:"hours"`
	Rate             string `json:"hourly_rate"`
}

type expenseItemPayload struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Method   string `json:"method"`
	Amount   string `json:"amount"`
	Memo     string `json:"memo"`
}

// invoicePayload is the full form snapshot submitted to preview,
// create and update. The invoice number is server-assigned and ignored
// on input.
type invoicePayload struct {
	InvoiceDate        string `json:"invoice_date"`
	DueDate            string `json:"due_date"`
	BillerName         string `json:"biller_name"`
	BillerAddress      string `json:"biller_address"`
	RegistrationNumber string `json:"registration_number"`
	ClientName         string `json:"client_name"`
	ClientAddress      string `json:"client_address"`
	BankName           string `json:"bank_name"`
	BranchName         string `json:"branch_name"`
	AccountType        string `json:"account_type"`
	AccountNumber      string `json:"account_number"`
	AccountHolder      string `json:"account_holder"`
	Notes              string `json:"notes"`

	WorkItems    []workItemPayload    `json:"work_items"`
	ExpenseItems []expenseItemPayload `json:"expense_items"`

	TaxRate    string `json:"tax_rate"`
	TaxMode    string `json:"tax_mode"`
	RateMode   string `json:"rate_mode"`
	GlobalRate string `json:"hourly_rate"`
}

// decodeInvoicePayload reads and decodes a JSON invoice payload.
func decodeInvoicePayload(r *http.Request) (*invoicePayload, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	var p invoicePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// toInput converts the payload into engine input. Parse failures are
// reported as field-tagged validation errors so the form can highlight
// the offending row.
func (p *invoicePayload) toInput() (services.InvoiceInput, error) {
	var in services.InvoiceInput

	invoiceDate, err := core.ParseDate(p.InvoiceDate)
	if err != nil {
		return in, fieldErr("invoice_date", err)
	}
	dueDate, err := core.ParseDate(p.DueDate)
	if err != nil {
		return in, fieldErr("due_date", err)
	}

	in.Meta = core.InvoiceMeta{
		InvoiceDate:        invoiceDate,
		DueDate:            dueDate,
		Biller:             core.Party{Name: sanitizeInput(p.BillerName), Address: sanitizeInput(p.BillerAddress)},
		RegistrationNumber: sanitizeInput(p.RegistrationNumber),
		Client:             core.Party{Name: sanitizeInput(p.ClientName), Address: sanitizeInput(p.ClientAddress)},
		Bank: core.BankAccount{
			BankName:      sanitizeInput(p.BankName),
			BranchName:    sanitizeInput(p.BranchName),
			AccountType:   sanitizeInput(p.AccountType),
			AccountNumber: sanitizeInput(p.AccountNumber),
			AccountHolder: sanitizeInput(p.AccountHolder),
		},
		Notes: sanitizeInput(p.Notes),
	}

	for i, w := range p.WorkItems {
		date, err := core.ParseDate(w.Date)
		if err != nil {
			return in, indexedErr("work_items", i, "date", err)
		}
		hours, err := core.ParseDecimal(w.Hours)
		if err != nil {
			return in, indexedErr("work_items", i, "hours", err)
		}
		rate, err := core.ParseYen(w.Rate)
		if err != nil {
			return in, indexedErr("work_items", i, "hourly_rate", err)
		}
		in.Work = append(in.Work, core.WorkItem{
			Date:             date,
			Description:      sanitizeInput(w.Description),
			DescriptionOther: sanitizeInput(w.DescriptionOther),
			Hours:            hours,
			Rate:             rate,
		})
	}

	for i, e := range p.ExpenseItems {
		date, err := core.ParseDate(e.Date)
		if err != nil {
			return in, indexedErr("expense_items", i, "date", err)
		}
		amount, err := core.ParseYen(e.Amount)
		if err != nil {
			return in, indexedErr("expense_items", i, "amount", err)
		}
		in.Expenses = append(in.Expenses, core.ExpenseItem{
			Date:     date,
			Location: sanitizeInput(e.Location),
			Method:   sanitizeInput(e.Method),
			Amount:   amount,
			Memo:     sanitizeInput(e.Memo),
		})
	}

	taxRate, err := core.ParseDecimal(p.TaxRate)
	if err != nil {
		return in, fieldErr("tax_rate", err)
	}
	taxMode := core.TaxMode(p.TaxMode)
	if p.TaxMode == "" {
		taxMode = core.TaxExclusive
	}
	in.Tax = core.TaxConfig{Rate: taxRate, Mode: taxMode}

	rateMode := core.RateMode(p.RateMode)
	if p.RateMode == "" {
		rateMode = core.RatePerItem
	}
	globalRate, err := core.ParseYen(p.GlobalRate)
	if err != nil {
		return in, fieldErr("hourly_rate", err)
	}
	in.Rates = core.RateConfig{Mode: rateMode, Global: globalRate}

	return in, nil
}

func fieldErr(field string, err error) *core.ValidationError {
	return &core.ValidationError{Field: field, Err: err}
}

func indexedErr(list string, i int, field string, err error) *core.ValidationError {
	return &core.ValidationError{Field: fmt.Sprintf("%s[%d].%s", list, i, field), Err: err}
}
