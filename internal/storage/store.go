package storage

import (
	"context"
	"errors"
	"time"

	"seikyu/internal/core"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrDraftNotFound   = errors.New("draft not found")
)

// InvoiceRecord is a persisted invoice: the raw configuration, the
// header fields and the computed figures. The computed figures are
// authoritative; they are recomputed server-side on every write so
// stored totals can never drift from the stored items.
type InvoiceRecord struct {
	ID        int64
	Number    string
	Meta      core.InvoiceMeta
	Tax       core.TaxConfig
	Rates     core.RateConfig
	Computed  core.ComputedInvoice
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceSummary is the list-view projection of a stored invoice.
type InvoiceSummary struct {
	ID         int64
	Number     string
	ClientName string
	Date       core.Date
	Total      core.Money
	CreatedAt  time.Time
}

// PendingExportInvoice carries the minimal data the export worker
// needs to pick up an unsynced invoice.
type PendingExportInvoice struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// Draft is a saved raw-input snapshot keyed by a client session key.
// The payload is opaque to the server; only the client interprets it.
type Draft struct {
	Key       string
	Payload   []byte
	UpdatedAt time.Time
}

// InvoiceStore is the record storage collaborator: list/detail/create/
// update/delete of persisted invoices plus the export bookkeeping the
// worker relies on.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, rec *InvoiceRecord) (*InvoiceRecord, error)
	GetInvoice(ctx context.Context, id int64) (*InvoiceRecord, error)
	ListInvoices(ctx context.Context) ([]InvoiceSummary, error)
	UpdateInvoice(ctx context.Context, rec *InvoiceRecord) (*InvoiceRecord, error)
	DeleteInvoice(ctx context.Context, id int64) (*InvoiceRecord, error)

	GetPendingExportInvoices(ctx context.Context, limit int) ([]PendingExportInvoice, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// DraftStore is the session persistence collaborator. It stores raw
// inputs, never computed output.
type DraftStore interface {
	SaveDraft(ctx context.Context, key string, payload []byte) error
	GetDraft(ctx context.Context, key string) (*Draft, error)
	DeleteDraft(ctx context.Context, key string) error
}

// Store combines both collaborators; the SQLite repository and the
// in-memory store implement it.
type Store interface {
	InvoiceStore
	DraftStore
	Close() error
}
