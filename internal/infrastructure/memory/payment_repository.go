package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/shopflow/fulfillment/internal/domain/payment"
)

type PaymentRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Record
	byTxn   map[string]string
	byOrder map[string][]string
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		byID:    make(map[string]*domain.Record),
		byTxn:   make(map[string]string),
		byOrder: make(map[string][]string),
	}
}

func (r *PaymentRepository) Insert(ctx context.Context, rec *domain.Record) error {
	_ = ctx
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("payment repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Transaction ids form a uniqueness index.
	if _, exists := r.byTxn[rec.TransactionID]; exists {
		return domain.ErrDuplicateTxn
	}
	r.byID[rec.ID] = clonePayment(rec)
	r.byTxn[rec.TransactionID] = rec.ID
	r.byOrder[rec.OrderID] = append(r.byOrder[rec.OrderID], rec.ID)
	return nil
}

func (r *PaymentRepository) FindByOrder(ctx context.Context, orderID string) ([]*domain.Record, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byOrder[orderID]
	out := make([]*domain.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, clonePayment(r.byID[id]))
	}
	return out, nil
}

func (r *PaymentRepository) FindByTransaction(ctx context.Context, transactionID string) (*domain.Record, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byTxn[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(r.byID[id]), nil
}

func clonePayment(rec *domain.Record) *domain.Record {
	if rec == nil {
		return nil
	}
	clone := *rec
	return &clone
}
