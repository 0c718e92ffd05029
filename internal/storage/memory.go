package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by the memory backend and as
// the test double for storage-facing tests. Data does not survive a
// restart.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	invoices   map[int64]*InvoiceRecord
	syncStatus map[int64]string
	drafts     map[string]*Draft
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		invoices:   make(map[int64]*InvoiceRecord),
		syncStatus: make(map[int64]string),
		drafts:     make(map[string]*Draft),
		now:        time.Now,
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateInvoice(ctx context.Context, rec *InvoiceRecord) (*InvoiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	day := now.Format("20060102")
	prefix := "INV-" + day + "-"
	// Next sequence is max existing suffix + 1; a same-day delete must
	// never free a number for reuse.
	maxSeq := 0
	for _, existing := range s.invoices {
		if !strings.HasPrefix(existing.Number, prefix) {
			continue
		}
		if seq, err := strconv.Atoi(existing.Number[len(prefix):]); err == nil && seq > maxSeq {
			maxSeq = seq
		}
	}

	stored := *rec
	stored.ID = s.nextID
	s.nextID++
	stored.Number = fmt.Sprintf("INV-%s-%03d", day, maxSeq+1)
	stored.Meta.InvoiceNumber = stored.Number
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.invoices[stored.ID] = &stored
	s.syncStatus[stored.ID] = "pending"

	out := stored
	return &out, nil
}

func (s *MemoryStore) GetInvoice(ctx context.Context, id int64) (*InvoiceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStore) ListInvoices(ctx context.Context) ([]InvoiceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]InvoiceSummary, 0, len(s.invoices))
	for _, rec := range s.invoices {
		summaries = append(summaries, InvoiceSummary{
			ID:         rec.ID,
			Number:     rec.Number,
			ClientName: rec.Meta.Client.Name,
			Date:       rec.Meta.InvoiceDate,
			Total:      rec.Computed.Total,
			CreatedAt:  rec.CreatedAt,
		})
	}
	sort.Slice(summaries, func(a, b int) bool {
		if summaries[a].CreatedAt.Equal(summaries[b].CreatedAt) {
			return summaries[a].ID > summaries[b].ID
		}
		return summaries[a].CreatedAt.After(summaries[b].CreatedAt)
	})
	return summaries, nil
}

func (s *MemoryStore) UpdateInvoice(ctx context.Context, rec *InvoiceRecord) (*InvoiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.invoices[rec.ID]
	if !ok {
		return nil, ErrInvoiceNotFound
	}

	stored := *rec
	stored.Number = existing.Number
	stored.Meta.InvoiceNumber = existing.Number
	stored.Version = existing.Version + 1
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = s.now()
	s.invoices[stored.ID] = &stored
	s.syncStatus[stored.ID] = "pending"

	out := stored
	return &out, nil
}

func (s *MemoryStore) DeleteInvoice(ctx context.Context, id int64) (*InvoiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	delete(s.invoices, id)
	delete(s.syncStatus, id)
	out := *rec
	return &out, nil
}

func (s *MemoryStore) GetPendingExportInvoices(ctx context.Context, limit int) ([]PendingExportInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := []PendingExportInvoice{}
	for id, rec := range s.invoices {
		if status := s.syncStatus[id]; status != "pending" && status != "error" {
			continue
		}
		pending = append(pending, PendingExportInvoice{ID: rec.ID, Version: rec.Version, CreatedAt: rec.CreatedAt})
	}
	sort.Slice(pending, func(a, b int) bool { return pending[a].ID < pending[b].ID })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *MemoryStore) MarkSynced(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[id]; ok {
		s.syncStatus[id] = "synced"
	}
	return nil
}

func (s *MemoryStore) MarkSyncError(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[id]; ok {
		s.syncStatus[id] = "error"
	}
	return nil
}

func (s *MemoryStore) SaveDraft(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.drafts[key] = &Draft{Key: key, Payload: buf, UpdatedAt: s.now()}
	return nil
}

func (s *MemoryStore) GetDraft(ctx context.Context, key string) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[key]
	if !ok {
		return nil, ErrDraftNotFound
	}
	out := *d
	return &out, nil
}

func (s *MemoryStore) DeleteDraft(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[key]; !ok {
		return ErrDraftNotFound
	}
	delete(s.drafts, key)
	return nil
}
