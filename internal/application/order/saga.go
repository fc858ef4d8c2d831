// Package order implements the order saga: a sequence of separately
// committed steps with status-transition compensation, traced end to end.
package order

import (
	"context"
	"time"

	"github.com/shopflow/fulfillment/internal/application/ledger"
	"github.com/shopflow/fulfillment/internal/domain/event"
	domorder "github.com/shopflow/fulfillment/internal/domain/order"
	"github.com/shopflow/fulfillment/internal/observability"
	"github.com/shopflow/fulfillment/internal/observability/logctx"
	"github.com/shopflow/fulfillment/internal/tracing"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName      = "fulfillment"
	useCasePlace     = "order.place"
	useCaseRelease   = "order.release_reservation"
	spanPrefix       = "UC."
	traceSourceOrder = "shop.create_order"
)

// Options tune saga-level tracing behavior.
type Options struct {
	// SampleRate applies to the order-creation trace.
	SampleRate float64
	// PreserveTotal is the order total above which a successful trace is
	// force-retained.
	PreserveTotal decimal.Decimal
}

func defaultOptions() Options {
	return Options{
		SampleRate:    1,
		PreserveTotal: decimal.NewFromInt(1000),
	}
}

// Saga coordinates pricing, eligibility, order creation, reservation,
// capture, finalization, and the detached notification enqueue. Each step is
// its own committed write; there is no cross-step transaction.
type Saga struct {
	orders      domorder.Repository
	products    ProductFetcher
	eligibility EligibilityChecker
	ledger      InventoryLedger
	payments    PaymentCapturer
	publisher   event.Publisher
	recorder    tracing.Recorder
	ids         IDGenerator
	tel         observability.Observability
	opts        Options

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	stepFailures observability.Counter
}

func NewSaga(
	orders domorder.Repository,
	products ProductFetcher,
	checker EligibilityChecker,
	invLedger InventoryLedger,
	payments PaymentCapturer,
	publisher event.Publisher,
	recorder tracing.Recorder,
	ids IDGenerator,
	tel observability.Observability,
	opts Options,
) *Saga {
	if tel == nil {
		tel = observability.Nop()
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = defaultOptions().SampleRate
	}
	if opts.PreserveTotal.IsZero() {
		opts.PreserveTotal = defaultOptions().PreserveTotal
	}
	metrics := tel.Metrics()
	return &Saga{
		orders:       orders,
		products:     products,
		eligibility:  checker,
		ledger:       invLedger,
		payments:     payments,
		publisher:    publisher,
		recorder:     recorder,
		ids:          ids,
		tel:          tel,
		opts:         opts,
		log:          tel.Logger().With(observability.F("service", serviceName)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		stepFailures: metrics.Counter(observability.MSagaStepFailures),
	}
}

type PlaceOrderInput struct {
	CustomerID    string
	Items         []domorder.LineItem
	PaymentMethod string
}

type PlaceOrderResult struct {
	OrderID string
	Status  domorder.Status
	Total   decimal.Decimal
}

// PlaceOrder runs the saga. Before the order row exists, failures abort with
// no durable side effect; afterwards, every failure is recorded as a status
// transition in addition to being returned.
func (s *Saga) PlaceOrder(ctx context.Context, in PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCasePlace))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("use_case", useCasePlace),
		attribute.String("order.customer_id", in.CustomerID),
		attribute.Int("order.item_count", len(in.Items)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	tr := tracing.Start(ctx, s.recorder, traceSourceOrder, s.opts.SampleRate)

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			tr.Error(ctx, "order creation failed", tracing.Metadata{
				"customer_id": in.CustomerID,
				"error":       err.Error(),
			})
			tr.Preserve(ctx)
			tr.Fail(ctx, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			tr.Succeed(ctx, map[string]any{"status": string(domorder.StatusConfirmed)})
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		s.reqCounter.Add(1,
			observability.L("use_case", useCasePlace),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat,
			observability.L("use_case", useCasePlace),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("trace_id", tr.TraceID()),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	tr.Info(ctx, "order creation initiated", tracing.Metadata{
		"customer_id": in.CustomerID,
		"item_count":  len(in.Items),
	})

	if in.CustomerID == "" {
		outcome, statusText = "error", "CUSTOMER_ID_REQUIRED"
		return nil, newValidation("customer id is required")
	}
	if len(in.Items) == 0 {
		outcome, statusText = "error", "ITEMS_REQUIRED"
		return nil, newValidation("at least one line item is required")
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			outcome, statusText = "error", "ITEM_INVALID"
			return nil, newValidation("line items require a product id and positive quantity")
		}
	}
	if in.PaymentMethod == "" {
		outcome, statusText = "error", "PAYMENT_METHOD_REQUIRED"
		return nil, newValidation("payment method is required")
	}

	// Step 1: resolve current unit prices. Lookups are order-independent
	// reads and run concurrently; the total uses the prices read here, not
	// any earlier snapshot.
	tr.Info(ctx, "step 1: fetching product details", nil)
	prices := make([]decimal.Decimal, len(in.Items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range in.Items {
		i, item := i, item
		g.Go(func() error {
			snapshot, ferr := s.products.ProductWithInventory(gctx, tr, item.ProductID)
			if ferr != nil {
				return &ProductFetchError{ProductID: item.ProductID, Cause: ferr}
			}
			prices[i] = snapshot.Product.Price
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		outcome, statusText = "error", "PRODUCT_FETCH_FAILED"
		s.countStepFailure("fetch_products")
		return nil, err
	}

	total := decimal.Zero
	for i, item := range in.Items {
		total = total.Add(prices[i].Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	tr.Info(ctx, "order total calculated", tracing.Metadata{
		"total":      total.String(),
		"item_count": len(in.Items),
	})

	// Step 2: eligibility. Ineligibility aborts before any order row exists.
	tr.Info(ctx, "step 2: validating customer", nil)
	validation, err := s.eligibility.Validate(ctx, tr, in.CustomerID, total)
	if err != nil {
		outcome, statusText = "error", "CUSTOMER_LOOKUP_FAILED"
		s.countStepFailure("validate_customer")
		return nil, err
	}
	if !validation.Eligible {
		outcome, statusText = "error", "CUSTOMER_INELIGIBLE"
		s.countStepFailure("validate_customer")
		return nil, &IneligibleError{Reason: validation.Reason}
	}

	// Step 3: create the order row in pending status. This is the first
	// durable write of the saga.
	tr.Info(ctx, "step 3: creating order record", nil)
	var entity *domorder.Order
	err = tr.WithSpan(ctx, "create_order_record", func(ctx context.Context, sp *tracing.Tracer) error {
		var derr error
		entity, derr = domorder.New(s.ids.NewID(), in.CustomerID, in.Items, total, in.PaymentMethod)
		if derr != nil {
			return derr
		}
		if ierr := s.orders.Insert(ctx, entity); ierr != nil {
			return ierr
		}
		sp.Info(ctx, "order record created", tracing.Metadata{
			"order_id": entity.ID,
			"total":    total.String(),
			"status":   string(entity.Status),
		})
		return nil
	})
	if err != nil {
		outcome, statusText = "error", "ORDER_INSERT_FAILED"
		s.countStepFailure("create_order")
		return nil, err
	}

	logger = logger.With(observability.F("order_id", entity.ID))

	// Step 4: reserve inventory, sequentially in caller order. On failure
	// the compensation is status-only: units reserved for earlier items in
	// the same call stay reserved.
	tr.Info(ctx, "step 4: reserving inventory", nil)
	items := make([]ledger.Item, len(in.Items))
	for i, it := range in.Items {
		items[i] = ledger.Item{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	if _, rerr := s.ledger.Reserve(ctx, tr, items); rerr != nil {
		outcome, statusText = "error", "INVENTORY_RESERVATION_FAILED"
		s.countStepFailure("reserve_inventory")
		s.markFailed(ctx, logger, tr, entity, domorder.StatusInventoryFailed)
		return nil, &ReservationError{Cause: rerr}
	}

	// Step 5: capture payment. Inventory committed in step 4 is not
	// released on this path; the durable record of how far the saga got is
	// the order status.
	tr.Info(ctx, "step 5: processing payment", nil)
	capture, perr := s.payments.Capture(ctx, tr, entity.ID, total, in.PaymentMethod)
	if perr != nil {
		outcome, statusText = "error", "PAYMENT_FAILED"
		s.countStepFailure("capture_payment")
		s.markFailed(ctx, logger, tr, entity, domorder.StatusPaymentFailed)
		return nil, perr
	}

	// Step 6: finalize.
	tr.Info(ctx, "step 6: finalizing order", nil)
	if err = entity.Confirm(capture.TransactionID); err != nil {
		outcome, statusText = "error", "CONFIRM_TRANSITION_FAILED"
		return nil, err
	}
	if err = s.orders.Update(ctx, entity); err != nil {
		outcome, statusText = "error", "ORDER_UPDATE_FAILED"
		return nil, err
	}

	// Step 7: enqueue the notification, detached from this call chain. The
	// event carries this trace/span so the dispatcher's spans nest under it.
	tr.Info(ctx, "step 7: scheduling notifications", nil)
	evt := domorder.NewConfirmedEvent(entity, validation.Customer.Email, tr.TraceID(), tr.SpanID())
	if pubErr := s.publisher.Publish(ctx, evt); pubErr != nil {
		logger.Warn("notification_enqueue_failed",
			observability.F("error", pubErr.Error()),
		)
	}

	if total.GreaterThan(s.opts.PreserveTotal) {
		tr.Preserve(ctx)
	}

	tr.Info(ctx, "order processing complete", tracing.Metadata{
		"order_id": entity.ID,
		"total":    total.String(),
		"status":   string(domorder.StatusConfirmed),
	})

	return &PlaceOrderResult{
		OrderID: entity.ID,
		Status:  domorder.StatusConfirmed,
		Total:   total,
	}, nil
}

// markFailed applies the durable compensation once the order row exists:
// a terminal status transition.
func (s *Saga) markFailed(ctx context.Context, logger observability.Logger, tr *tracing.Tracer, entity *domorder.Order, status domorder.Status) {
	var terr error
	switch status {
	case domorder.StatusInventoryFailed:
		terr = entity.MarkInventoryFailed()
	case domorder.StatusPaymentFailed:
		terr = entity.MarkPaymentFailed()
	default:
		terr = domorder.ErrInvalidStateTransition
	}
	if terr == nil {
		terr = s.orders.Update(ctx, entity)
	}
	if terr != nil {
		// The caller still surfaces the step failure; losing the status
		// write leaves the order pending for the operator to re-drive.
		logger.Error("order_status_transition_failed",
			observability.F("target_status", string(status)),
			observability.F("error", terr.Error()),
		)
		return
	}
	tr.Error(ctx, "order marked failed", tracing.Metadata{
		"order_id": entity.ID,
		"status":   string(status),
	})
}

func (s *Saga) countStepFailure(step string) {
	s.stepFailures.Add(1, observability.L("step", step))
}

// GetOrder returns the current order record.
func (s *Saga) GetOrder(ctx context.Context, id string) (*domorder.Order, error) {
	if id == "" {
		return nil, newValidation("order id is required")
	}
	return s.orders.Get(ctx, id)
}

// ReleaseReservation is the explicit, operator-driven compensation for a
// payment_failed order: it releases the units the saga left reserved. It is
// deliberately not invoked by PlaceOrder itself.
func (s *Saga) ReleaseReservation(ctx context.Context, orderID string) (err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseRelease))

	tr := tracing.Start(ctx, s.recorder, "shop.release_reservation", s.opts.SampleRate)
	defer func() {
		if err != nil {
			tr.Error(ctx, "reservation release failed", tracing.Metadata{
				"order_id": orderID,
				"error":    err.Error(),
			})
			tr.Preserve(ctx)
			tr.Fail(ctx, err)
			return
		}
		tr.Succeed(ctx, nil)
	}()

	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if entity.Status != domorder.StatusPaymentFailed {
		// Only payment_failed orders have a known, fully reserved item set;
		// an inventory_failed order's reserved prefix is not recorded.
		return newValidation("only payment_failed orders can be released")
	}

	items := make([]ledger.Item, len(entity.Items))
	for i, it := range entity.Items {
		items[i] = ledger.Item{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	if err = s.ledger.Release(ctx, tr, items); err != nil {
		return err
	}

	logger.Info("reservation_released",
		observability.F("order_id", orderID),
		observability.F("items", len(items)),
	)
	return nil
}
