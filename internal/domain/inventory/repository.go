package inventory

import "context"

// Repository persists inventory records. Update runs the mutation under
// record-level serialization: concurrent updates against the same product are
// applied one at a time, so a read-modify-write cannot lose updates.
type Repository interface {
	GetByProduct(ctx context.Context, productID string) (*Record, error)
	Update(ctx context.Context, productID string, mutate func(*Record) error) (*Record, error)
	Save(ctx context.Context, r *Record) error
}
