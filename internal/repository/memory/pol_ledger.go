package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"polgen/internal/domain"
	"polgen/internal/port"
)

type ledgerKey struct {
	vendor     string
	identifier string
}

type polLedger struct {
	mu      sync.Mutex
	entries map[ledgerKey]domain.LedgerEntry
}

// NewPOLLedger creates an in-memory POLLedger. Entries live for the life of
// the process only.
func NewPOLLedger() port.POLLedger {
	return &polLedger{entries: make(map[ledgerKey]domain.LedgerEntry)}
}

func (l *polLedger) Lookup(_ context.Context, vendorCode, identifier string) (*domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[ledgerKey{vendorCode, identifier}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

func (l *polLedger) Reserve(_ context.Context, vendorCode, identifier string, runID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{vendorCode, identifier}
	if _, ok := l.entries[key]; ok {
		return domain.ErrDuplicatePOL
	}
	l.entries[key] = domain.LedgerEntry{
		VendorCode: vendorCode,
		Identifier: identifier,
		RunID:      runID,
		CreatedAt:  time.Now().UTC(),
	}
	return nil
}

func (l *polLedger) Record(_ context.Context, entry *domain.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{entry.VendorCode, entry.Identifier}
	if existing, ok := l.entries[key]; ok && existing.POLNumber != "" {
		return domain.ErrDuplicatePOL
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	l.entries[key] = *entry
	return nil
}

func (l *polLedger) Release(_ context.Context, vendorCode, identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{vendorCode, identifier}
	if entry, ok := l.entries[key]; ok && entry.POLNumber == "" {
		delete(l.entries, key)
	}
	return nil
}
