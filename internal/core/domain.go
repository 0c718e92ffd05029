package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// TaxExclusive treats entered amounts as pre-tax; tax is added on top.
	TaxExclusive TaxMode = "exclusive"
	// TaxInclusive treats entered amounts as already containing tax.
	TaxInclusive TaxMode = "inclusive"

	// RatePerItem means every work item carries its own hourly rate.
	RatePerItem RateMode = "per_item"
	// RateGlobal means all work items share one invoice-level hourly rate.
	RateGlobal RateMode = "global"

	// CategoryOther is the sentinel for the "other" category choice.
	// A work item using it must supply free text in DescriptionOther.
	CategoryOther = "other"
)

type (
	TaxMode  string
	RateMode string

	Date struct {
		time.Time
	}

	// WorkItem is a raw billable time entry as supplied by the caller.
	// Description is either free text or a category choice; when it is
	// the CategoryOther sentinel, DescriptionOther carries the real text.
	WorkItem struct {
		Date             Date
		Description      string
		DescriptionOther string
		Hours            float64
		Rate             Money // ignored under RateGlobal
	}

	// ExpenseItem is a raw incidental cost entry. Expenses are never taxed.
	ExpenseItem struct {
		Date     Date
		Location string
		Method   string
		Amount   Money
		Memo     string
	}

	// TaxConfig selects the tax rate (a percentage, fractions allowed)
	// and whether entered work amounts are pre-tax or tax-inclusive.
	TaxConfig struct {
		Rate float64
		Mode TaxMode
	}

	// RateConfig selects per-item versus shared invoice-level rates.
	// Global is only consulted when Mode is RateGlobal.
	RateConfig struct {
		Mode   RateMode
		Global Money
	}

	// Party identifies the biller or the client on an invoice.
	Party struct {
		Name    string
		Address string
	}

	// BankAccount is the optional transfer destination block.
	BankAccount struct {
		BankName      string
		BranchName    string
		AccountType   string
		AccountNumber string
		AccountHolder string
	}

	// InvoiceMeta carries the non-monetary invoice header fields.
	// DueDate, when set, overrides the derived due date.
	InvoiceMeta struct {
		InvoiceNumber      string
		InvoiceDate        Date
		DueDate            Date
		Biller             Party
		RegistrationNumber string
		Client             Party
		Bank               BankAccount
		Notes              string
	}
)

var (
	ErrInvalidHours     = errors.New("hours must be a positive number")
	ErrInvalidRate      = errors.New("hourly rate must be a positive amount")
	ErrInvalidAmount    = errors.New("amount must not be negative")
	ErrInvalidTaxRate   = errors.New("tax rate must be between 0 and 100")
	ErrInvalidTaxMode   = errors.New("tax mode must be exclusive or inclusive")
	ErrInvalidRateMode  = errors.New("rate mode must be per_item or global")
	ErrMissingOtherText = errors.New("the other category requires free text")
	ErrEmptyDescription = errors.New("description is required")
)

// ValidationError reports a rejected input together with the offending
// field, so callers can surface a specific message. It always wraps one
// of the sentinel errors above.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields a zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (m TaxMode) IsValid() bool {
	return m == TaxExclusive || m == TaxInclusive
}

func (m RateMode) IsValid() bool {
	return m == RatePerItem || m == RateGlobal
}

// Validate checks the tax configuration.
func (c TaxConfig) Validate() error {
	if !c.Mode.IsValid() {
		return invalid("tax_mode", ErrInvalidTaxMode)
	}
	if c.Rate < 0 || c.Rate > 100 {
		return invalid("tax_rate", ErrInvalidTaxRate)
	}
	return nil
}

// Validate checks the rate configuration. The global rate is only
// required when the global mode is selected.
func (c RateConfig) Validate() error {
	if !c.Mode.IsValid() {
		return invalid("rate_mode", ErrInvalidRateMode)
	}
	if c.Mode == RateGlobal && c.Global.Yen <= 0 {
		return invalid("hourly_rate", ErrInvalidRate)
	}
	return nil
}

// IsBlank reports whether every field of the work item is empty. Blank
// rows come from incremental form entry and are silently dropped.
func (w WorkItem) IsBlank() bool {
	return w.Date.IsZero() &&
		strings.TrimSpace(w.Description) == "" &&
		strings.TrimSpace(w.DescriptionOther) == "" &&
		w.Hours == 0 &&
		w.Rate.Yen == 0
}

// IsBlank reports whether every field of the expense item is empty.
func (e ExpenseItem) IsBlank() bool {
	return e.Date.IsZero() &&
		strings.TrimSpace(e.Location) == "" &&
		strings.TrimSpace(e.Method) == "" &&
		e.Amount.Yen == 0 &&
		strings.TrimSpace(e.Memo) == ""
}

// IsEmpty reports whether no bank transfer block was supplied.
func (b BankAccount) IsEmpty() bool {
	return b.BankName == "" && b.BranchName == "" && b.AccountType == "" &&
		b.AccountNumber == "" && b.AccountHolder == ""
}
