package testutil

import (
	"context"
	"sync"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/pkg/errors"
)

// MemoryStore is an in-memory ledger store. Set Err to make every commit
// fail without applying anything. Like the Postgres store it refuses to
// rewrite a processed prep.
type MemoryStore struct {
	mu      sync.Mutex
	Snap    *domain.Snapshot
	Err     error
	Commits int
	Loads   int
}

// NewMemoryStore creates a store seeded with snap.
func NewMemoryStore(snap *domain.Snapshot) *MemoryStore {
	if snap == nil {
		snap = &domain.Snapshot{}
	}
	return &MemoryStore{Snap: snap}
}

// Load returns a copy of the stored snapshot
func (m *MemoryStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Loads++
	return m.Snap.Clone(), nil
}

// Commit applies writes all at once
func (m *MemoryStore) Commit(ctx context.Context, writes ...domain.Write) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	next := m.Snap.Clone()
	for _, w := range writes {
		switch rec := w.Record.(type) {
		case string:
			kept := next.PrepEvents[:0]
			for _, p := range next.PrepEvents {
				if p.ID != rec {
					kept = append(kept, p)
				}
			}
			next.PrepEvents = kept
		case domain.PrepEvent:
			for _, p := range next.PrepEvents {
				if p.ID == rec.ID && p.Processed {
					return errors.Conflict("prep " + p.BatchNumber + " has already been dispatched")
				}
			}
			next.PrepEvents = replaceOrAppend(next.PrepEvents, rec, func(p domain.PrepEvent) bool { return p.ID == rec.ID })
		case domain.DispatchEvent:
			next.DispatchEvents = append(next.DispatchEvents, rec)
		case domain.SalesRecord:
			next.SalesRecords = replaceOrAppend(next.SalesRecords, rec, func(r domain.SalesRecord) bool { return r.ID == rec.ID })
		case domain.Recipe:
			next.Recipes = replaceOrAppend(next.Recipes, rec, func(r domain.Recipe) bool { return r.DishName == rec.DishName })
		case domain.InventoryItem:
			next.Inventory = replaceOrAppend(next.Inventory, rec, func(i domain.InventoryItem) bool { return i.Name == rec.Name })
		}
	}
	m.Commits++
	m.Snap = next
	return nil
}

// Mutate edits the stored snapshot in place, as another process would.
func (m *MemoryStore) Mutate(fn func(*domain.Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.Snap)
}

func replaceOrAppend[T any](items []T, v T, match func(T) bool) []T {
	for i := range items {
		if match(items[i]) {
			items[i] = v
			return items
		}
	}
	return append(items, v)
}
