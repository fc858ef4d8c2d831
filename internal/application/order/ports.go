package order

import (
	"context"

	"github.com/shopflow/fulfillment/internal/application/catalog"
	"github.com/shopflow/fulfillment/internal/application/eligibility"
	"github.com/shopflow/fulfillment/internal/application/ledger"
	apppay "github.com/shopflow/fulfillment/internal/application/payment"
	"github.com/shopflow/fulfillment/internal/tracing"
	"github.com/shopspring/decimal"
)

type IDGenerator interface {
	NewID() string
}

// ProductFetcher resolves a line item's product and inventory snapshot under
// the saga's trace handle.
type ProductFetcher interface {
	ProductWithInventory(ctx context.Context, tr *tracing.Tracer, productID string) (*catalog.ProductWithInventory, error)
}

type EligibilityChecker interface {
	Validate(ctx context.Context, tr *tracing.Tracer, customerID string, orderTotal decimal.Decimal) (*eligibility.Result, error)
}

type InventoryLedger interface {
	Reserve(ctx context.Context, tr *tracing.Tracer, items []ledger.Item) ([]ledger.Item, error)
	Release(ctx context.Context, tr *tracing.Tracer, items []ledger.Item) error
}

type PaymentCapturer interface {
	Capture(ctx context.Context, tr *tracing.Tracer, orderID string, amount decimal.Decimal, method string) (*apppay.Capture, error)
}
