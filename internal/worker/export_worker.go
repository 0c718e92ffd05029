package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"seikyu/internal/amqp"
	"seikyu/internal/export"
	"seikyu/internal/storage"
)

// ExportWorker moves invoice summaries from storage into the
// bookkeeping ledger. It consumes queue messages and additionally
// sweeps the pending backlog, so a lost message only delays an export.
type ExportWorker struct {
	storage   storage.InvoiceStore
	ledger    export.Ledger
	batchSize int
}

func NewExportWorker(store storage.InvoiceStore, ledger export.Ledger, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   store,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single invoice sync message from AMQP
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.InvoiceSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	rec, err := w.storage.GetInvoice(ctx, msg.ID)
	if errors.Is(err, storage.ErrInvoiceNotFound) {
		// Deleted between publish and consume; the delete message
		// takes care of the ledger row.
		slog.WarnContext(ctx, "Invoice vanished before export, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get invoice from storage: %w", err)
	}

	if rec.Version != msg.Version {
		slog.InfoContext(ctx, "Invoice version moved on, exporting current state",
			"id", msg.ID,
			"message_version", msg.Version,
			"current_version", rec.Version)
	}

	return w.exportInvoice(ctx, rec)
}

// HandleDeleteMessage processes a single invoice delete message from AMQP
func (w *ExportWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.InvoiceDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message",
		"id", msg.ID,
		"number", msg.Number)

	if err := w.ledger.DeleteInvoice(ctx, msg.Number); err != nil {
		return fmt.Errorf("delete ledger row: %w", err)
	}

	slog.InfoContext(ctx, "Ledger row removed", "number", msg.Number)
	return nil
}

// ProcessPendingInvoices exports any invoices that haven't reached the
// ledger yet. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingInvoices(ctx context.Context) error {
	pending, err := w.storage.GetPendingExportInvoices(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending invoices: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending invoices", "count", len(pending))

	for _, p := range pending {
		rec, err := w.storage.GetInvoice(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get invoice", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.exportInvoice(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export invoice", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck exports any pending invoices at worker startup.
// This is useful to recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	// Get a larger batch for startup check
	pending, err := w.storage.GetPendingExportInvoices(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending invoices for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending invoices found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending invoices on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		rec, err := w.storage.GetInvoice(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get invoice for startup export",
				"id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.exportInvoice(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export invoice during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportInvoice(ctx context.Context, rec *storage.InvoiceRecord) error {
	ref, err := w.ledger.AppendInvoice(ctx, rec)
	if err != nil {
		// Mark as sync error
		if markErr := w.storage.MarkSyncError(ctx, rec.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	// Mark as successfully synced
	if err := w.storage.MarkSynced(ctx, rec.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", rec.ID, "error", err)
		// Don't return error here - the export actually worked
	}

	slog.InfoContext(ctx, "Successfully exported invoice",
		"id", rec.ID,
		"number", rec.Number,
		"ledger_ref", ref,
		"total_yen", rec.Computed.Total.Yen)

	return nil
}
