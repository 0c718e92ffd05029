package services

import (
	"context"
	"fmt"
	"log/slog"

	"seikyu/internal/core"
	"seikyu/internal/storage"
)

// ExportPublisher pushes export events toward the bookkeeping worker.
// The AMQP client implements it; a nil publisher disables exporting.
type ExportPublisher interface {
	PublishInvoiceSync(ctx context.Context, id, version int64) error
	PublishInvoiceDelete(ctx context.Context, id int64, number string) error
	Close() error
}

// InvoiceInput is the raw snapshot a caller submits: header fields,
// item rows and configuration, exactly as entered.
type InvoiceInput struct {
	Meta     core.InvoiceMeta
	Work     []core.WorkItem
	Expenses []core.ExpenseItem
	Tax      core.TaxConfig
	Rates    core.RateConfig
}

// InvoiceService orchestrates invoice operations across the engine,
// storage and the export queue. Computation always runs server-side on
// create and update so persisted figures cannot drift from inputs.
type InvoiceService struct {
	store     storage.Store
	publisher ExportPublisher
}

func NewInvoiceService(store storage.Store, publisher ExportPublisher) *InvoiceService {
	return &InvoiceService{
		store:     store,
		publisher: publisher,
	}
}

// Preview runs the engine over a raw snapshot without persisting
// anything.
func (s *InvoiceService) Preview(ctx context.Context, in InvoiceInput) (*core.ComputedInvoice, error) {
	return core.Compute(in.Meta, in.Work, in.Expenses, in.Tax, in.Rates)
}

// CreateInvoice computes and stores a new invoice, then queues its
// ledger export. A failed publish never fails the create: the pending
// backlog catches the record later.
func (s *InvoiceService) CreateInvoice(ctx context.Context, in InvoiceInput) (*storage.InvoiceRecord, error) {
	computed, err := core.Compute(in.Meta, in.Work, in.Expenses, in.Tax, in.Rates)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.CreateInvoice(ctx, &storage.InvoiceRecord{
		Meta:     in.Meta,
		Tax:      in.Tax,
		Rates:    in.Rates,
		Computed: *computed,
	})
	if err != nil {
		return nil, fmt.Errorf("save invoice: %w", err)
	}

	if err := s.publishSync(ctx, rec.ID, rec.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", rec.ID, "error", err)
		// Don't fail the request - invoice is saved locally
	}

	return rec, nil
}

// UpdateInvoice recomputes and fully replaces a stored invoice's
// fields and items, then queues a re-export.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id int64, in InvoiceInput) (*storage.InvoiceRecord, error) {
	computed, err := core.Compute(in.Meta, in.Work, in.Expenses, in.Tax, in.Rates)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.UpdateInvoice(ctx, &storage.InvoiceRecord{
		ID:       id,
		Meta:     in.Meta,
		Tax:      in.Tax,
		Rates:    in.Rates,
		Computed: *computed,
	})
	if err != nil {
		if err == storage.ErrInvoiceNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	if err := s.publishSync(ctx, rec.ID, rec.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", rec.ID, "error", err)
	}

	return rec, nil
}

// DeleteInvoice removes a stored invoice and queues removal of its
// ledger row.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id int64) error {
	rec, err := s.store.DeleteInvoice(ctx, id)
	if err != nil {
		if err == storage.ErrInvoiceNotFound {
			return err
		}
		return fmt.Errorf("delete invoice: %w", err)
	}

	if err := s.publishDelete(ctx, rec.ID, rec.Number); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", rec.ID, "number", rec.Number, "error", err)
		// Don't fail the request - invoice is deleted locally
	}

	return nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*storage.InvoiceRecord, error) {
	return s.store.GetInvoice(ctx, id)
}

func (s *InvoiceService) ListInvoices(ctx context.Context) ([]storage.InvoiceSummary, error) {
	return s.store.ListInvoices(ctx)
}

// Drafts pass through untouched; the engine never sees them.

func (s *InvoiceService) SaveDraft(ctx context.Context, key string, payload []byte) error {
	return s.store.SaveDraft(ctx, key, payload)
}

func (s *InvoiceService) GetDraft(ctx context.Context, key string) (*storage.Draft, error) {
	return s.store.GetDraft(ctx, key)
}

func (s *InvoiceService) DeleteDraft(ctx context.Context, key string) error {
	return s.store.DeleteDraft(ctx, key)
}

func (s *InvoiceService) publishSync(ctx context.Context, id, version int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Export publisher not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishInvoiceSync(ctx, id, version)
}

func (s *InvoiceService) publishDelete(ctx context.Context, id int64, number string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Export publisher not available, skipping delete message")
		return nil
	}
	return s.publisher.PublishInvoiceDelete(ctx, id, number)
}

// Close closes both storage and the export publisher
func (s *InvoiceService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close invoice service: %v", errs)
	}

	return nil
}
