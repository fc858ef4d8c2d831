package memory

import (
	"context"
	"sync"

	domain "github.com/shopflow/fulfillment/internal/domain/inventory"
)

// InventoryRepository serializes updates per product record: Update holds the
// record lock across the read-modify-write so two concurrent reservations
// against the same product can never both observe the same on-hand quantity.
type InventoryRepository struct {
	mu      sync.RWMutex
	records map[string]*inventorySlot
}

type inventorySlot struct {
	mu     sync.Mutex
	record *domain.Record
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		records: make(map[string]*inventorySlot),
	}
}

func (r *InventoryRepository) GetByProduct(ctx context.Context, productID string) (*domain.Record, error) {
	_ = ctx

	slot, ok := r.slot(productID, false)
	if !ok {
		return nil, domain.ErrNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	return cloneRecord(slot.record), nil
}

func (r *InventoryRepository) Update(ctx context.Context, productID string, mutate func(*domain.Record) error) (*domain.Record, error) {
	_ = ctx

	slot, ok := r.slot(productID, false)
	if !ok {
		return nil, domain.ErrNotFound
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	// Mutate a copy so a failed mutation leaves the stored record unchanged.
	next := cloneRecord(slot.record)
	if err := mutate(next); err != nil {
		return nil, err
	}
	slot.record = next
	return cloneRecord(next), nil
}

func (r *InventoryRepository) Save(ctx context.Context, rec *domain.Record) error {
	_ = ctx
	if rec == nil {
		return nil
	}

	slot, _ := r.slot(rec.ProductID, true)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	slot.record = cloneRecord(rec)
	return nil
}

func (r *InventoryRepository) slot(productID string, create bool) (*inventorySlot, bool) {
	r.mu.RLock()
	slot, ok := r.records[productID]
	r.mu.RUnlock()
	if ok || !create {
		return slot, ok
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok = r.records[productID]; ok {
		return slot, true
	}
	slot = &inventorySlot{}
	r.records[productID] = slot
	return slot, true
}

func cloneRecord(rec *domain.Record) *domain.Record {
	if rec == nil {
		return nil
	}
	clone := *rec
	return &clone
}
