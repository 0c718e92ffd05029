package memory

import (
	"context"
	"fmt"
	"sync"

	"seikyu/internal/storage"
)

// Row is one exported ledger entry.
type Row struct {
	Number     string
	ClientName string
	TotalYen   int64
}

// Ledger is an in-memory export target used in tests and local runs
// without Google credentials.
type Ledger struct {
	mu   sync.Mutex
	rows []Row
}

func New() *Ledger {
	return &Ledger{}
}

// AppendInvoice stores the summary row, replacing an existing row with
// the same number, and returns a synthetic row reference.
func (l *Ledger) AppendInvoice(_ context.Context, rec *storage.InvoiceRecord) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row := Row{
		Number:     rec.Number,
		ClientName: rec.Meta.Client.Name,
		TotalYen:   rec.Computed.Total.Yen,
	}
	for i := range l.rows {
		if l.rows[i].Number == rec.Number {
			l.rows[i] = row
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	l.rows = append(l.rows, row)
	return fmt.Sprintf("mem:%d", len(l.rows)), nil
}

// DeleteInvoice removes the row with the given number; missing rows
// are not an error.
func (l *Ledger) DeleteInvoice(_ context.Context, number string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.rows {
		if l.rows[i].Number == number {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the current ledger contents.
func (l *Ledger) Rows() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Row(nil), l.rows...)
}
