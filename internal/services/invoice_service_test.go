package services

import (
	"context"
	"errors"
	"testing"

	"seikyu/internal/core"
	"seikyu/internal/storage"
)

type publishedSync struct {
	id      int64
	version int64
}

type publishedDelete struct {
	id     int64
	number string
}

type fakePublisher struct {
	syncs   []publishedSync
	deletes []publishedDelete
	fail    bool
}

func (p *fakePublisher) PublishInvoiceSync(_ context.Context, id, version int64) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.syncs = append(p.syncs, publishedSync{id: id, version: version})
	return nil
}

func (p *fakePublisher) PublishInvoiceDelete(_ context.Context, id int64, number string) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.deletes = append(p.deletes, publishedDelete{id: id, number: number})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func sampleInput() InvoiceInput {
	return InvoiceInput{
		Meta: core.InvoiceMeta{
			InvoiceDate: core.NewDate(2024, 6, 30),
			Client:      core.Party{Name: "Acme"},
		},
		Work: []core.WorkItem{
			{Date: core.NewDate(2024, 6, 3), Description: "development", Hours: 8, Rate: core.Money{Yen: 5000}},
		},
		Tax:   core.TaxConfig{Rate: 10, Mode: core.TaxExclusive},
		Rates: core.RateConfig{Mode: core.RatePerItem},
	}
}

func TestCreateInvoiceComputesAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewInvoiceService(storage.NewMemoryStore(), pub)
	ctx := context.Background()

	rec, err := svc.CreateInvoice(ctx, sampleInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Computed.Total.Yen != 44000 {
		t.Errorf("expected total 44000, got %d", rec.Computed.Total.Yen)
	}
	if rec.Number == "" {
		t.Error("expected assigned invoice number")
	}
	if len(pub.syncs) != 1 || pub.syncs[0].id != rec.ID || pub.syncs[0].version != 1 {
		t.Fatalf("expected one sync publish for version 1, got %+v", pub.syncs)
	}
}

func TestCreateInvoiceSurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{fail: true}
	svc := NewInvoiceService(storage.NewMemoryStore(), pub)
	ctx := context.Background()

	rec, err := svc.CreateInvoice(ctx, sampleInput())
	if err != nil {
		t.Fatalf("create must not fail on publish error, got %v", err)
	}
	if _, err := svc.GetInvoice(ctx, rec.ID); err != nil {
		t.Fatalf("invoice must be stored despite publish failure: %v", err)
	}
}

func TestCreateInvoiceRejectsInvalidInput(t *testing.T) {
	svc := NewInvoiceService(storage.NewMemoryStore(), &fakePublisher{})
	in := sampleInput()
	in.Work[0].Hours = -1

	_, err := svc.CreateInvoice(context.Background(), in)
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	// nothing persisted
	list, _ := svc.ListInvoices(context.Background())
	if len(list) != 0 {
		t.Fatalf("expected empty store, got %+v", list)
	}
}

func TestUpdateInvoiceRecomputesAndBumpsVersion(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewInvoiceService(storage.NewMemoryStore(), pub)
	ctx := context.Background()

	rec, err := svc.CreateInvoice(ctx, sampleInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := sampleInput()
	in.Work[0].Hours = 10
	updated, err := svc.UpdateInvoice(ctx, rec.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Computed.Total.Yen != 55000 {
		t.Errorf("expected recomputed total 55000, got %d", updated.Computed.Total.Yen)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2, got %d", updated.Version)
	}
	if len(pub.syncs) != 2 || pub.syncs[1].version != 2 {
		t.Fatalf("expected second sync publish with version 2, got %+v", pub.syncs)
	}
}

func TestUpdateInvoiceNotFound(t *testing.T) {
	svc := NewInvoiceService(storage.NewMemoryStore(), &fakePublisher{})
	_, err := svc.UpdateInvoice(context.Background(), 99, sampleInput())
	if !errors.Is(err, storage.ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestDeleteInvoicePublishesNumber(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewInvoiceService(storage.NewMemoryStore(), pub)
	ctx := context.Background()

	rec, err := svc.CreateInvoice(ctx, sampleInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteInvoice(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(pub.deletes) != 1 || pub.deletes[0].number != rec.Number {
		t.Fatalf("expected delete publish with number %s, got %+v", rec.Number, pub.deletes)
	}
	if _, err := svc.GetInvoice(ctx, rec.ID); !errors.Is(err, storage.ErrInvoiceNotFound) {
		t.Fatalf("expected invoice gone, got %v", err)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewInvoiceService(storage.NewMemoryStore(), pub)
	ctx := context.Background()

	computed, err := svc.Preview(ctx, sampleInput())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if computed.Total.Yen != 44000 {
		t.Errorf("expected total 44000, got %d", computed.Total.Yen)
	}

	list, _ := svc.ListInvoices(ctx)
	if len(list) != 0 {
		t.Fatal("preview must not persist")
	}
	if len(pub.syncs) != 0 {
		t.Fatal("preview must not publish")
	}
}

func TestDraftPassthrough(t *testing.T) {
	svc := NewInvoiceService(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	if err := svc.SaveDraft(ctx, "k", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	d, err := svc.GetDraft(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(d.Payload) != `{"v":1}` {
		t.Fatalf("unexpected payload %q", d.Payload)
	}
	if err := svc.DeleteDraft(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
