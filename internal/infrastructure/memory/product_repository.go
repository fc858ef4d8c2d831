package memory

import (
	"context"
	"sync"

	domain "github.com/shopflow/fulfillment/internal/domain/product"
)

type ProductRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Product
	bySKU map[string]string
	order []string
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		byID:  make(map[string]*domain.Product),
		bySKU: make(map[string]string),
	}
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{ProductID: id}
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySKU[sku]
	if !ok {
		return nil, &domain.NotFoundError{ProductID: sku}
	}
	return cloneProduct(r.byID[id]), nil
}

func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Product
	for _, id := range r.order {
		if p := r.byID[id]; p.Category == category {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneProduct(r.byID[id]))
	}
	return out, nil
}

func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.byID[p.ID] = cloneProduct(p)
	r.bySKU[p.SKU] = p.ID
	return nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
