// Package catalog serves the traced read surface: customers, products, and
// per-product inventory snapshots the saga prices line items from.
package catalog

import (
	"context"
	"errors"

	domcust "github.com/shopflow/fulfillment/internal/domain/customer"
	dominv "github.com/shopflow/fulfillment/internal/domain/inventory"
	domprod "github.com/shopflow/fulfillment/internal/domain/product"
	"github.com/shopflow/fulfillment/internal/observability"
	"github.com/shopflow/fulfillment/internal/tracing"
)

const (
	// Product/inventory snapshot traces keep half their volume.
	productFetchSampleRate = 0.5
	defaultLowStock        = 10
)

// ProductWithInventory is the snapshot the saga prices line items from: the
// product joined with its current available (unreserved) quantity.
type ProductWithInventory struct {
	Product   *domprod.Product
	Available int
	Warehouse string
}

type Service struct {
	customers domcust.Repository
	products  domprod.Repository
	inventory dominv.Repository
	recorder  tracing.Recorder
	lowStock  int
	log       observability.Logger
}

func NewService(
	customers domcust.Repository,
	products domprod.Repository,
	inventory dominv.Repository,
	recorder tracing.Recorder,
	lowStockThreshold int,
	logger observability.Logger,
) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = defaultLowStock
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		customers: customers,
		products:  products,
		inventory: inventory,
		recorder:  recorder,
		lowStock:  lowStockThreshold,
		log:       logger.With(observability.F("component", "catalog")),
	}
}

func (s *Service) ListCustomers(ctx context.Context) (_ []*domcust.Customer, err error) {
	tr := tracing.Start(ctx, s.recorder, "shop.get_customers", 1)
	defer func() { completeRoot(ctx, tr, err) }()

	tr.Info(ctx, "fetching customers", nil)
	customers, err := s.customers.List(ctx)
	if err != nil {
		return nil, err
	}
	tr.Info(ctx, "customers fetched", tracing.Metadata{"count": len(customers)})
	return customers, nil
}

func (s *Service) ListProducts(ctx context.Context) (_ []*domprod.Product, err error) {
	tr := tracing.Start(ctx, s.recorder, "shop.get_products", 1)
	defer func() { completeRoot(ctx, tr, err) }()

	tr.Info(ctx, "fetching products", nil)
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	tr.Info(ctx, "products fetched", tracing.Metadata{"count": len(products)})
	return products, nil
}

// GetProductWithInventory is the standalone entry point: it opens its own
// trace at the product-fetch sample rate.
func (s *Service) GetProductWithInventory(ctx context.Context, productID string) (_ *ProductWithInventory, err error) {
	tr := tracing.Start(ctx, s.recorder, "shop.get_product_with_inventory", productFetchSampleRate)
	defer func() { completeRoot(ctx, tr, err) }()
	return s.ProductWithInventory(ctx, tr, productID)
}

// ProductWithInventory resolves the product and its inventory snapshot under
// the supplied trace handle. Low available stock preserves the trace.
func (s *Service) ProductWithInventory(ctx context.Context, tr *tracing.Tracer, productID string) (*ProductWithInventory, error) {
	tr.Info(ctx, "fetching product details", tracing.Metadata{"product_id": productID})

	prod, err := s.products.Get(ctx, productID)
	if err != nil {
		tr.Error(ctx, "product not found", tracing.Metadata{"product_id": productID})
		return nil, err
	}

	out := &ProductWithInventory{Product: prod}
	err = tr.WithSpan(ctx, "check_inventory", func(ctx context.Context, sp *tracing.Tracer) error {
		sp.Info(ctx, "checking inventory", tracing.Metadata{
			"product_id": productID,
			"warehouse":  "primary",
		})
		rec, err := s.inventory.GetByProduct(ctx, productID)
		switch {
		case errors.Is(err, dominv.ErrNotFound):
			sp.Info(ctx, "inventory record absent", tracing.Metadata{"product_id": productID})
			return nil
		case err != nil:
			return err
		}
		out.Available = rec.Quantity
		out.Warehouse = rec.WarehouseLocation
		sp.Info(ctx, "inventory checked", tracing.Metadata{
			"inventory_found": true,
			"quantity":        rec.Quantity,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Available < s.lowStock {
		tr.Warn(ctx, "low inventory detected", tracing.Metadata{
			"product_id": productID,
			"inventory":  out.Available,
		})
		tr.Preserve(ctx)
	}

	tr.Info(ctx, "product fetched", tracing.Metadata{
		"product_id": productID,
		"inventory":  out.Available,
		"price":      prod.Price.String(),
	})
	return out, nil
}

func completeRoot(ctx context.Context, tr *tracing.Tracer, err error) {
	if err != nil {
		tr.Fail(ctx, err)
		return
	}
	tr.Succeed(ctx, nil)
}
