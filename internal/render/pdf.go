package render

import (
	"bytes"
	"fmt"
	"strconv"

	"seikyu/internal/core"

	"github.com/jung-kurt/gofpdf"
)

// InvoicePDF renders a printable A4 document from the computed invoice
// and its header fields. Every monetary figure comes straight from the
// computation result; nothing is re-derived here.
//
// The core fonts only cover latin text, so labels are English while
// free-text fields pass through as entered.
func InvoicePDF(meta core.InvoiceMeta, computed core.ComputedInvoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(0, 12, "INVOICE")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 10)
	headerLine(pdf, "Invoice No.", meta.InvoiceNumber)
	headerLine(pdf, "Invoice Date", meta.InvoiceDate.String())
	headerLine(pdf, "Due Date", computed.DueDate.String())
	pdf.Ln(4)

	// Biller and client side by side
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(95, 6, "From")
	pdf.Cell(95, 6, "Bill To")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(95, 5, meta.Biller.Name)
	pdf.Cell(95, 5, meta.Client.Name)
	pdf.Ln(5)
	pdf.Cell(95, 5, meta.Biller.Address)
	pdf.Cell(95, 5, meta.Client.Address)
	pdf.Ln(5)
	if meta.RegistrationNumber != "" {
		pdf.Cell(95, 5, "Reg. No. "+meta.RegistrationNumber)
		pdf.Ln(5)
	}
	pdf.Ln(5)

	if len(computed.Work) > 0 {
		workTable(pdf, computed.Work)
		pdf.Ln(3)
	}
	if len(computed.Expenses) > 0 {
		expenseTable(pdf, computed.Expenses)
		pdf.Ln(3)
	}

	totals(pdf, computed)

	if !meta.Bank.IsEmpty() {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, "Bank Transfer")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 5, fmt.Sprintf("%s %s (%s) %s",
			meta.Bank.BankName, meta.Bank.BranchName, meta.Bank.AccountType, meta.Bank.AccountNumber))
		pdf.Ln(5)
		pdf.Cell(0, 5, meta.Bank.AccountHolder)
		pdf.Ln(5)
	}

	if meta.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, "Notes")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, meta.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func headerLine(pdf *gofpdf.Fpdf, label, value string) {
	if value == "" {
		return
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 5, label)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, value)
	pdf.Ln(5)
}

func workTable(pdf *gofpdf.Fpdf, lines []core.LineItem) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(28, 7, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(82, 7, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "Hours", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Rate", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range lines {
		pdf.CellFormat(28, 6, line.Date.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(82, 6, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, strconv.FormatFloat(line.Hours, 'f', -1, 64), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, line.Rate.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, line.Amount.String(), "1", 1, "R", false, 0, "")
	}
}

func expenseTable(pdf *gofpdf.Fpdf, lines []core.ExpenseLine) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(28, 7, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 7, "Location", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Method", "1", 0, "L", true, 0, "")
	pdf.CellFormat(42, 7, "Memo", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range lines {
		pdf.CellFormat(28, 6, line.Date.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, line.Location, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, line.Method, "1", 0, "L", false, 0, "")
		pdf.CellFormat(42, 6, line.Memo, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, line.Amount.String(), "1", 1, "R", false, 0, "")
	}
}

func totals(pdf *gofpdf.Fpdf, computed core.ComputedInvoice) {
	taxLabel := fmt.Sprintf("Tax (%s%%)", strconv.FormatFloat(computed.TaxRate, 'f', -1, 64))
	if computed.TaxMode == core.TaxInclusive {
		taxLabel += " incl."
	}

	totalRow(pdf, "Subtotal", computed.Subtotal, false)
	totalRow(pdf, taxLabel, computed.Tax, false)
	if computed.ExpenseTotal.Yen != 0 {
		totalRow(pdf, "Expenses", computed.ExpenseTotal, false)
	}
	totalRow(pdf, "Total", computed.Total, true)
}

func totalRow(pdf *gofpdf.Fpdf, label string, amount core.Money, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Arial", style, 10)
	pdf.CellFormat(130, 6, "", "", 0, "", false, 0, "")
	pdf.CellFormat(30, 6, label, "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, "JPY "+amount.String(), "", 1, "R", false, 0, "")
}
