package memory

import (
	"context"
	"sync"

	domain "github.com/shopflow/fulfillment/internal/domain/customer"
)

type CustomerRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Customer
	byEmail map[string]string
	order   []string
}

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		byID:    make(map[string]*domain.Customer),
		byEmail: make(map[string]string),
	}
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (*domain.Customer, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{CustomerID: id}
	}
	return cloneCustomer(c), nil
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, &domain.NotFoundError{CustomerID: email}
	}
	return cloneCustomer(r.byID[id]), nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]*domain.Customer, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Customer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneCustomer(r.byID[id]))
	}
	return out, nil
}

func (r *CustomerRepository) Save(ctx context.Context, c *domain.Customer) error {
	_ = ctx
	if c == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[c.ID]; !exists {
		r.order = append(r.order, c.ID)
	}
	r.byID[c.ID] = cloneCustomer(c)
	r.byEmail[c.Email] = c.ID
	return nil
}

func cloneCustomer(c *domain.Customer) *domain.Customer {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
