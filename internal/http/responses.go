package http

import (
	"time"

	"seikyu/internal/core"
	"seikyu/internal/storage"
)

// Response bodies carry both the raw yen value and a formatted string
// for every amount, so the page never re-implements formatting.

type lineItemResponse struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Hours       float64 `json:"hours"`
	RateYen     int64   `json:"rate_yen"`
	Rate        string  `json:"rate"`
	AmountYen   int64   `json:"amount_yen"`
	Amount      string  `json:"amount"`
}

type expenseLineResponse struct {
	Date      string `json:"date"`
	Location  string `json:"location"`
	Method    string `json:"method"`
	Memo      string `json:"memo"`
	AmountYen int64  `json:"amount_yen"`
	Amount    string `json:"amount"`
}

type computedResponse struct {
	WorkItems    []lineItemResponse    `json:"work_items"`
	ExpenseItems []expenseLineResponse `json:"expense_items"`

	SubtotalYen         int64   `json:"subtotal_yen"`
	Subtotal            string  `json:"subtotal"`
	TaxYen              int64   `json:"tax_yen"`
	Tax                 string  `json:"tax"`
	TaxRate             float64 `json:"tax_rate"`
	TaxMode             string  `json:"tax_mode"`
	WorkTotalYen        int64   `json:"work_total_yen"`
	WorkTotal           string  `json:"work_total"`
	ExpenseTotalYen     int64   `json:"expense_total_yen"`
	ExpenseTotal        string  `json:"expense_total"`
	CombinedSubtotalYen int64   `json:"combined_subtotal_yen"`
	CombinedSubtotal    string  `json:"combined_subtotal"`
	TotalYen            int64   `json:"total_yen"`
	Total               string  `json:"total"`

	DueDate string `json:"due_date"`
}

type invoiceResponse struct {
	ID        int64            `json:"id"`
	Number    string           `json:"number"`
	Version   int64            `json:"version"`
	Date      string           `json:"invoice_date"`
	Client    string           `json:"client_name"`
	Computed  computedResponse `json:"computed"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type invoiceSummaryResponse struct {
	ID        int64     `json:"id"`
	Number    string    `json:"number"`
	Client    string    `json:"client_name"`
	Date      string    `json:"invoice_date"`
	TotalYen  int64     `json:"total_yen"`
	Total     string    `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

func computedResponseFrom(c core.ComputedInvoice) computedResponse {
	resp := computedResponse{
		WorkItems:    make([]lineItemResponse, 0, len(c.Work)),
		ExpenseItems: make([]expenseLineResponse, 0, len(c.Expenses)),

		SubtotalYen:         c.Subtotal.Yen,
		Subtotal:            c.Subtotal.String(),
		TaxYen:              c.Tax.Yen,
		Tax:                 c.Tax.String(),
		TaxRate:             c.TaxRate,
		TaxMode:             string(c.TaxMode),
		WorkTotalYen:        c.WorkTotal.Yen,
		WorkTotal:           c.WorkTotal.String(),
		ExpenseTotalYen:     c.ExpenseTotal.Yen,
		ExpenseTotal:        c.ExpenseTotal.String(),
		CombinedSubtotalYen: c.CombinedSubtotal.Yen,
		CombinedSubtotal:    c.CombinedSubtotal.String(),
		TotalYen:            c.Total.Yen,
		Total:               c.Total.String(),

		DueDate: c.DueDate.String(),
	}

	for _, w := range c.Work {
		resp.WorkItems = append(resp.WorkItems, lineItemResponse{
			Date:        w.Date.String(),
			Description: w.Description,
			Hours:       w.Hours,
			RateYen:     w.Rate.Yen,
			Rate:        w.Rate.String(),
			AmountYen:   w.Amount.Yen,
			Amount:      w.Amount.String(),
		})
	}
	for _, e := range c.Expenses {
		resp.ExpenseItems = append(resp.ExpenseItems, expenseLineResponse{
			Date:      e.Date.String(),
			Location:  e.Location,
			Method:    e.Method,
			Memo:      e.Memo,
			AmountYen: e.Amount.Yen,
			Amount:    e.Amount.String(),
		})
	}

	return resp
}

func invoiceResponseFrom(rec *storage.InvoiceRecord) invoiceResponse {
	return invoiceResponse{
		ID:        rec.ID,
		Number:    rec.Number,
		Version:   rec.Version,
		Date:      rec.Meta.InvoiceDate.String(),
		Client:    rec.Meta.Client.Name,
		Computed:  computedResponseFrom(rec.Computed),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func invoiceSummariesFrom(summaries []storage.InvoiceSummary) []invoiceSummaryResponse {
	out := make([]invoiceSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, invoiceSummaryResponse{
			ID:        s.ID,
			Number:    s.Number,
			Client:    s.ClientName,
			Date:      s.Date.String(),
			TotalYen:  s.Total.Yen,
			Total:     s.Total.String(),
			CreatedAt: s.CreatedAt,
		})
	}
	return out
}
