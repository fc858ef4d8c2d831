// Package ledger implements the inventory ledger: atomic per-record
// reservation and its release counterpart used by compensations.
package ledger

import (
	"context"
	"errors"

	dominv "github.com/shopflow/fulfillment/internal/domain/inventory"
	"github.com/shopflow/fulfillment/internal/observability"
	"github.com/shopflow/fulfillment/internal/observability/logctx"
	"github.com/shopflow/fulfillment/internal/tracing"
	"go.uber.org/multierr"
)

const defaultLowStockThreshold = 10

// Item is a product/quantity pair in a reservation request or result.
type Item struct {
	ProductID string
	Quantity  int
}

type Service struct {
	inventory dominv.Repository
	lowStock  int
	log       observability.Logger
}

func NewService(inventory dominv.Repository, lowStockThreshold int, logger observability.Logger) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = defaultLowStockThreshold
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		inventory: inventory,
		lowStock:  lowStockThreshold,
		log:       logger.With(observability.F("component", "inventory_ledger")),
	}
}

// Reserve moves stock from on-hand to reserved, one item at a time in the
// caller-supplied order. Processing stops at the first item that cannot be
// satisfied; items reserved earlier in the same call stay reserved, so a
// failure always leaves a deterministic prefix committed. The committed
// prefix is returned alongside the error.
func (s *Service) Reserve(ctx context.Context, tr *tracing.Tracer, items []Item) ([]Item, error) {
	logger := logctx.FromOr(ctx, s.log)
	reserved := make([]Item, 0, len(items))

	for _, item := range items {
		err := tr.WithSpan(ctx, "reserve_item", func(ctx context.Context, sp *tracing.Tracer) error {
			sp.Info(ctx, "reserving item", tracing.Metadata{
				"product_id":    item.ProductID,
				"requested_qty": item.Quantity,
			})

			rec, err := s.inventory.Update(ctx, item.ProductID, func(r *dominv.Record) error {
				return r.Reserve(item.Quantity)
			})
			if errors.Is(err, dominv.ErrNotFound) {
				err = &dominv.InsufficientError{ProductID: item.ProductID, Requested: item.Quantity}
			}
			if err != nil {
				var insufficient *dominv.InsufficientError
				if errors.As(err, &insufficient) {
					sp.Error(ctx, "insufficient stock", tracing.Metadata{
						"product_id": insufficient.ProductID,
						"requested":  insufficient.Requested,
						"available":  insufficient.Available,
					})
				}
				return err
			}

			sp.Info(ctx, "item reserved", tracing.Metadata{
				"product_id":   item.ProductID,
				"new_quantity": rec.Quantity,
				"reserved":     rec.Reserved,
			})
			if rec.Quantity < s.lowStock {
				sp.Warn(ctx, "low stock after reservation", tracing.Metadata{
					"product_id": item.ProductID,
					"quantity":   rec.Quantity,
				})
				sp.Preserve(ctx)
			}
			return nil
		})
		if err != nil {
			logger.Warn("reserve_stopped",
				observability.F("product_id", item.ProductID),
				observability.F("reserved_items", len(reserved)),
				observability.F("error", err.Error()),
			)
			return reserved, err
		}
		reserved = append(reserved, item)
	}

	logger.Info("reserve_complete",
		observability.F("reserved_items", len(reserved)),
	)
	return reserved, nil
}

// Release reverses reservations, crediting units back to on-hand stock. It
// is safe to call with the exact set previously reserved: a quantity beyond
// what is still reserved clamps rather than corrupting the record. All items
// are attempted; per-item failures are aggregated.
func (s *Service) Release(ctx context.Context, tr *tracing.Tracer, items []Item) error {
	logger := logctx.FromOr(ctx, s.log)

	var errs error
	for _, item := range items {
		err := tr.WithSpan(ctx, "release_item", func(ctx context.Context, sp *tracing.Tracer) error {
			sp.Info(ctx, "releasing item", tracing.Metadata{
				"product_id": item.ProductID,
				"quantity":   item.Quantity,
			})
			_, err := s.inventory.Update(ctx, item.ProductID, func(r *dominv.Record) error {
				return r.Release(item.Quantity)
			})
			return err
		})
		if err != nil {
			logger.Error("release_item_failed",
				observability.F("product_id", item.ProductID),
				observability.F("error", err.Error()),
			)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
