package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"seikyu/internal/core"
)

func testRecord(client string, total int64) *InvoiceRecord {
	return &InvoiceRecord{
		Meta: core.InvoiceMeta{
			InvoiceDate: core.NewDate(2024, 6, 30),
			Client:      core.Party{Name: client},
		},
		Tax:   core.TaxConfig{Rate: 10, Mode: core.TaxExclusive},
		Rates: core.RateConfig{Mode: core.RatePerItem},
		Computed: core.ComputedInvoice{
			Total: core.Money{Yen: total},
		},
	}
}

func TestMemoryStoreAssignsDayScopedNumbers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	day := time.Now().Format("20060102")
	for i := 1; i <= 3; i++ {
		rec, err := store.CreateInvoice(ctx, testRecord("Acme", 1000))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		want := fmt.Sprintf("INV-%s-%03d", day, i)
		if rec.Number != want {
			t.Fatalf("expected number %s, got %s", want, rec.Number)
		}
		if rec.Version != 1 {
			t.Errorf("expected version 1, got %d", rec.Version)
		}
	}
}

func TestMemoryStoreNumberNotReusedAfterDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var first *InvoiceRecord
	for i := 0; i < 3; i++ {
		rec, err := store.CreateInvoice(ctx, testRecord("Acme", 1000))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if first == nil {
			first = rec
		}
	}

	if _, err := store.DeleteInvoice(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rec, err := store.CreateInvoice(ctx, testRecord("Acme", 1000))
	if err != nil {
		t.Fatalf("create after delete: %v", err)
	}
	day := time.Now().Format("20060102")
	want := fmt.Sprintf("INV-%s-%03d", day, 4)
	if rec.Number != want {
		t.Fatalf("expected fresh number %s after delete, got %s", want, rec.Number)
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.CreateInvoice(ctx, testRecord("Acme", 66000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetInvoice(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Meta.Client.Name != "Acme" || got.Computed.Total.Yen != 66000 {
		t.Fatalf("unexpected record: %+v", got)
	}

	got.Computed.Total = core.Money{Yen: 70000}
	updated, err := store.UpdateInvoice(ctx, got)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2 after update, got %d", updated.Version)
	}
	if updated.Number != created.Number {
		t.Errorf("update must keep the assigned number, got %s", updated.Number)
	}

	if _, err := store.DeleteInvoice(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetInvoice(ctx, created.ID); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	store.now = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Minute)
	}

	for _, client := range []string{"first", "second", "third"} {
		if _, err := store.CreateInvoice(ctx, testRecord(client, 100)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := store.ListInvoices(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ClientName != "third" || list[2].ClientName != "first" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestMemoryStoreSyncTracking(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.CreateInvoice(ctx, testRecord("Acme", 100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := store.GetPendingExportInvoices(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Fatalf("expected one pending invoice, got %+v", pending)
	}

	if err := store.MarkSynced(ctx, created.ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	pending, err = store.GetPendingExportInvoices(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending invoices after sync, got %+v", pending)
	}

	// an update puts the record back in the export queue
	rec, _ := store.GetInvoice(ctx, created.ID)
	if _, err := store.UpdateInvoice(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, _ = store.GetPendingExportInvoices(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("expected pending after update, got %+v", pending)
	}
}

func TestMemoryStoreDrafts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.GetDraft(ctx, "missing"); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected ErrDraftNotFound, got %v", err)
	}

	if err := store.SaveDraft(ctx, "session-1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	d, err := store.GetDraft(ctx, "session-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(d.Payload) != `{"a":1}` {
		t.Fatalf("unexpected payload %q", d.Payload)
	}

	// overwrite wins
	if err := store.SaveDraft(ctx, "session-1", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	d, _ = store.GetDraft(ctx, "session-1")
	if string(d.Payload) != `{"a":2}` {
		t.Fatalf("expected overwrite, got %q", d.Payload)
	}

	if err := store.DeleteDraft(ctx, "session-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteDraft(ctx, "session-1"); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected ErrDraftNotFound on second delete, got %v", err)
	}
}
