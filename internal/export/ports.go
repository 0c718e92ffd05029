package export

import (
	"context"

	"seikyu/internal/storage"
)

// Ports for outbound ledger adapters.
type (
	// LedgerWriter appends an invoice summary row to the bookkeeping
	// ledger. Re-exporting an already-present invoice replaces its row.
	LedgerWriter interface {
		AppendInvoice(ctx context.Context, rec *storage.InvoiceRecord) (rowRef string, err error)
	}

	// LedgerDeleter removes an invoice's row by its number.
	LedgerDeleter interface {
		DeleteInvoice(ctx context.Context, number string) error
	}

	Ledger interface {
		LedgerWriter
		LedgerDeleter
	}
)
