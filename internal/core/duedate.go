package core

import "time"

// ResolveDueDate picks the payment due date for an invoice.
//
// An explicit due date always wins; it is caller-controlled and not
// checked against the invoice date. Otherwise the anchor is the latest
// work date, falling back to the invoice date, and the due date is the
// last day of the month following the anchor. With no anchor at all the
// due date stays unset.
func ResolveDueDate(explicit Date, invoiceDate Date, work []LineItem) Date {
	if !explicit.IsZero() {
		return explicit
	}
	var anchor Date
	for _, line := range work {
		if !line.Date.IsZero() && line.Date.After(anchor.Time) {
			anchor = line.Date
		}
	}
	// Only an invoice with no dated work falls back to the invoice
	// date, so the derived due date may precede the invoice date.
	if anchor.IsZero() {
		anchor = invoiceDate
	}
	if anchor.IsZero() {
		return Date{}
	}
	// Day zero of the month after next normalizes to the last day of
	// the following month, with year rollover handled by time.Date.
	y, m, _ := anchor.Date()
	return Date{Time: time.Date(y, m+2, 0, 0, 0, 0, 0, anchor.Location())}
}
