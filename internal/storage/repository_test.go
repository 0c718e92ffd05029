package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "seikyu.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryNumberNotReusedAfterDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	var first *InvoiceRecord
	for i := 0; i < 3; i++ {
		rec, err := repo.CreateInvoice(ctx, testRecord("Acme", 1000))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if first == nil {
			first = rec
		}
	}

	if _, err := repo.DeleteInvoice(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	rec, err := repo.CreateInvoice(ctx, testRecord("Acme", 1000))
	if err != nil {
		t.Fatalf("create after delete: %v", err)
	}
	day := time.Now().Format("20060102")
	want := fmt.Sprintf("INV-%s-%03d", day, 4)
	if rec.Number != want {
		t.Fatalf("expected fresh number %s after delete, got %s", want, rec.Number)
	}
}

func TestSQLiteRepositoryDeleteTwice(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateInvoice(ctx, testRecord("Acme", 1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := repo.DeleteInvoice(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.Number != created.Number {
		t.Fatalf("expected deleted record %s, got %s", created.Number, deleted.Number)
	}

	if _, err := repo.DeleteInvoice(ctx, created.ID); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound on second delete, got %v", err)
	}
}
