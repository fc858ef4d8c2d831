package order_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopflow/fulfillment/internal/application/catalog"
	"github.com/shopflow/fulfillment/internal/application/eligibility"
	"github.com/shopflow/fulfillment/internal/application/ledger"
	apporder "github.com/shopflow/fulfillment/internal/application/order"
	apppayment "github.com/shopflow/fulfillment/internal/application/payment"
	domcust "github.com/shopflow/fulfillment/internal/domain/customer"
	"github.com/shopflow/fulfillment/internal/domain/event"
	dominv "github.com/shopflow/fulfillment/internal/domain/inventory"
	domorder "github.com/shopflow/fulfillment/internal/domain/order"
	dompay "github.com/shopflow/fulfillment/internal/domain/payment"
	domprod "github.com/shopflow/fulfillment/internal/domain/product"
	"github.com/shopflow/fulfillment/internal/infrastructure/gateway"
	"github.com/shopflow/fulfillment/internal/infrastructure/id"
	"github.com/shopflow/fulfillment/internal/infrastructure/memory"
	"github.com/shopflow/fulfillment/internal/tracing"
	tracemem "github.com/shopflow/fulfillment/internal/tracing/memory"
)

// capturePublisher records published events synchronously.
type capturePublisher struct {
	events []event.Event
}

func (p *capturePublisher) Publish(_ context.Context, e event.Event) error {
	p.events = append(p.events, e)
	return nil
}

type sagaFixture struct {
	customers *memory.CustomerRepository
	products  *memory.ProductRepository
	inventory *memory.InventoryRepository
	orders    *memory.OrderRepository
	payments  *memory.PaymentRepository
	recorder  *tracemem.Recorder
	publisher *capturePublisher
	saga      *apporder.Saga
}

func newSagaFixture(t *testing.T, strategy gateway.FaultStrategy) *sagaFixture {
	t.Helper()

	f := &sagaFixture{
		customers: memory.NewCustomerRepository(),
		products:  memory.NewProductRepository(),
		inventory: memory.NewInventoryRepository(),
		orders:    memory.NewOrderRepository(),
		payments:  memory.NewPaymentRepository(),
		recorder:  tracemem.NewRecorder(),
		publisher: &capturePublisher{},
	}
	ids := id.NewUUIDGenerator()

	cat := catalog.NewService(f.customers, f.products, f.inventory, f.recorder, 10, nil)
	checker := eligibility.NewChecker(f.customers, f.orders, nil)
	invLedger := ledger.NewService(f.inventory, 10, nil)
	processor := apppayment.NewProcessor(gateway.NewSimulated(strategy, nil), f.payments, ids, nil)

	f.saga = apporder.NewSaga(
		f.orders, cat, checker, invLedger, processor,
		f.publisher, f.recorder, ids, nil,
		apporder.Options{SampleRate: 1, PreserveTotal: decimal.NewFromInt(1000)},
	)
	return f
}

func (f *sagaFixture) addCustomer(t *testing.T, id string, creditLimit int64) {
	t.Helper()
	c, err := domcust.New(id, "Test Customer", id+"@example.com", decimal.NewFromInt(creditLimit))
	require.NoError(t, err)
	require.NoError(t, f.customers.Save(context.Background(), c))
}

func (f *sagaFixture) addProduct(t *testing.T, id, price string, stock int) {
	t.Helper()
	p, err := domprod.New(id, "Product "+id, "", decimal.RequireFromString(price), "Electronics", "SKU-"+id)
	require.NoError(t, err)
	require.NoError(t, f.products.Save(context.Background(), p))

	rec, err := dominv.NewRecord(id, stock, "Warehouse-A")
	require.NoError(t, err)
	require.NoError(t, f.inventory.Save(context.Background(), rec))
}

func (f *sagaFixture) orderTrace(t *testing.T) *tracing.Trace {
	t.Helper()
	traces, err := f.recorder.ListTraces(context.Background(), tracing.Filter{Source: "shop.create_order", Limit: 1})
	require.NoError(t, err)
	require.Len(t, traces, 1)
	return traces[0]
}

func TestPlaceOrderHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, gateway.AlwaysApprove())
	f.addCustomer(t, "c1", 5000)
	f.addProduct(t, "p1", "149.99", 50)
	f.addProduct(t, "p2", "49.99", 50)

	res, err := f.saga.PlaceOrder(ctx, apporder.PlaceOrderInput{
		CustomerID: "c1",
		Items: []domorder.LineItem{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 2},
		},
		PaymentMethod: "credit_card",
	})
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusConfirmed, res.Status)
	// 149.99 + 2*49.99
	assert.True(t, res.Total.Equal(decimal.RequireFromString("249.97")), "got %s", res.Total)

	stored, err := f.orders.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusConfirmed, stored.Status)
	require.NotNil(t, stored.ConfirmedAt)
	assert.True(t, strings.HasPrefix(stored.TransactionID, "txn_"))

	records, err := f.payments.FindByOrder(ctx, res.OrderID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(res.Total))
	assert.Equal(t, dompay.StatusCompleted, records[0].Status)

	p1, _ := f.inventory.GetByProduct(ctx, "p1")
	assert.Equal(t, 49, p1.Quantity)
	assert.Equal(t, 1, p1.Reserved)
	p2, _ := f.inventory.GetByProduct(ctx, "p2")
	assert.Equal(t, 48, p2.Quantity)
	assert.Equal(t, 2, p2.Reserved)

	require.Len(t, f.publisher.events, 1)
	evt, ok := f.publisher.events[0].(domorder.ConfirmedEvent)
	require.True(t, ok)
	assert.Equal(t, res.OrderID, evt.OrderID)
	assert.Equal(t, "c1@example.com", evt.CustomerEmail)
	assert.NotEmpty(t, evt.TraceID)
	assert.NotEmpty(t, evt.SpanID)

	tr := f.orderTrace(t)
	assert.Equal(t, tracing.StatusSuccess, tr.Status)
	assert.False(t, tr.Preserved, "249.97 stays under the preserve threshold")
}

func TestPlaceOrderValidatesInput(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, gateway.AlwaysApprove())

	cases := []struct {
		name string
		in   apporder.PlaceOrderInput
	}{
		{"missing customer", apporder.PlaceOrderInput{Items: []domorder.LineItem{{ProductID: "p1", Quantity: 1}}, PaymentMethod: "credit_card"}},
		{"no items", apporder.PlaceOrderInput{CustomerID: "c1", PaymentMethod: "credit_card"}},
		{"zero quantity", apporder.PlaceOrderInput{CustomerID: "c1", Items: []domorder.LineItem{{ProductID: "p1"}}, PaymentMethod: "credit_card"}},
		{"missing method", apporder.PlaceOrderInput{CustomerID: "c1", Items: []domorder.LineItem{{ProductID: "p1", Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.saga.PlaceOrder(ctx, tc.in)
			assert.Nil(t, res)
			var verr *apporder.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestPlaceOrderUnknownProductAbortsBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, gateway.AlwaysApprove())
	f.addCustomer(t, "c1", 5000)

	res, err := f.saga.PlaceOrder(ctx, apporder.PlaceOrderInput{
		CustomerID:    "c1",
		Items:         []domorder.LineItem{{ProductID: "ghost", Quantity: 1}},
		PaymentMethod: "credit_card",
	})
	assert.Nil(t, res)

	var fetchErr *apporder.ProductFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "ghost", fetchErr.ProductID)
	var notFound *domprod.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	pending, err := f.orders.ListByStatus(ctx, domorder.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPlaceOrderIneligibleCustomerLeavesNoOrder(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, gateway.AlwaysApprove())
	f.addCustomer(t, "c1", 100)
	f.addProduct(t, "p1", "149.99", 50)

	res, err := f.saga.PlaceOrder(ctx, apporder.PlaceOrderInput{
		CustomerID:    "c1",
		Items:         []domorder.LineItem{{ProductID: "p1", Quantity: 1}},
		PaymentMethod: "credit_card",
	})
	assert.Nil(t, res)

	var ineligible *apporder.IneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, eligibility.ReasonCreditLimitExceeded, ineligible.Reason)

	for _, status := range []domorder.Status{domorder.StatusPending, domorder.StatusInventoryFailed, domorder.StatusPaymentFailed} {
		orders, lerr := f.orders.ListByStatus(ctx, status)
		require.NoError(t, lerr)
		assert.Empty(t, orders)
	}

	// Trace of the refused order survives eviction for later inspection.
	tr := f.orderTrace(t)
	assert.True(t, tr.Preserved)
	assert.Equal(t, tracing.StatusError, tr.Status)
}

func TestPlaceOrderInsufficientStockMarksInventoryFailed(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, gateway.AlwaysApprove())
	f.addCustomer(t, "c1", 5000)
	f.addProduct(t, "p1", "10.00", 50)
	f.addProduct(t, "p2", "10.00", 1)

	res, err := f.saga.PlaceOrder(ctx, apporder.PlaceOrderInput{
		CustomerID: "c1",
		Items: []domorder.LineItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 5},
		},
		PaymentMethod: "credit_card",
	})
	assert.Nil(t, res)

	var resErr *apporder.ReservationError
	require.ErrorAs(t, err, &resErr)
	var insufficient *dominv.InsufficientError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "p2", insufficient.ProductID)

	failed, lerr := f.orders.ListByStatus(ctx, domorder.StatusInventoryFailed)
	require.NoError(t, lerr)
	require.Len(t, failed, 1)

	// The committed prefix stays reserved; that is the recorded compensation
	// gap, visible in inventory.
	p1, _ := f.inventory.GetByProduct(ctx, "p1")
	assert.Equal(t, 2, p1.Reserved)
	p2, _ := f.inventory.GetByProduct(ctx, "p2")
	assert.Zero(t, p2.Reserved)

	records, perr := f.payments.FindByOrder(ctx, failed[0].ID)
	require.NoError(t, perr)
	assert.Empty(t, records, "payment is never attempted after a reservation failure")
}

func TestPlaceOrderDeclinedPaymentMarksPaymentFailed(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, gateway.AlwaysDecline(dompay.ReasonInsufficientFunds))
	f.addCustomer(t, "c1", 5000)
	f.addProduct(t, "p1", "100.00", 50)

	res, err := f.saga.PlaceOrder(ctx, apporder.PlaceOrderInput{
		CustomerID:    "c1",
		Items:         []domorder.LineItem{{ProductID: "p1", Quantity: 3}},
		PaymentMethod: "credit_card",
	})
	assert.Nil(t, res)

	var declined *dompay.DeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, dompay.ReasonInsufficientFunds, declined.Reason)

	failed, lerr := f.orders.ListByStatus(ctx, domorder.StatusPaymentFailed)
	require.NoError(t, lerr)
	require.Len(t, failed, 1)
	assert.Empty(t, failed[0].TransactionID)

	records, perr := f.payments.FindByOrder(ctx, failed[0].ID)
	require.NoError(t, perr)
	assert.Empty(t, records)

	// Units stay reserved until the operator releases them.
	p1, _ := f.inventory.GetByProduct(ctx, "p1")
	assert.Equal(t, 47, p1.Quantity)
	assert.Equal(t, 3, p1.Reserved)

	assert.Empty(t, f.publisher.events)
	tr := f.orderTrace(t)
	assert.Equal(t, tracing.StatusError, tr.Status)
	assert.True(t, tr.Preserved)
}

func TestPlaceOrderPreservesHighValueTraces(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, gateway.AlwaysApprove())
	f.addCustomer(t, "c1", 5000)
	f.addProduct(t, "p1", "400.00", 50)

	_, err := f.saga.PlaceOrder(ctx, apporder.PlaceOrderInput{
		CustomerID:    "c1",
		Items:         []domorder.LineItem{{ProductID: "p1", Quantity: 3}},
		PaymentMethod: "credit_card",
	})
	require.NoError(t, err)

	tr := f.orderTrace(t)
	assert.True(t, tr.Preserved, "1200.00 crosses the preserve threshold")
}

func TestReleaseReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("releases a payment_failed order", func(t *testing.T) {
		f := newSagaFixture(t, gateway.AlwaysDecline(dompay.ReasonInsufficientFunds))
		f.addCustomer(t, "c1", 5000)
		f.addProduct(t, "p1", "100.00", 50)

		_, err := f.saga.PlaceOrder(ctx, apporder.PlaceOrderInput{
			CustomerID:    "c1",
			Items:         []domorder.LineItem{{ProductID: "p1", Quantity: 3}},
			PaymentMethod: "credit_card",
		})
		require.Error(t, err)

		failed, err := f.orders.ListByStatus(ctx, domorder.StatusPaymentFailed)
		require.NoError(t, err)
		require.Len(t, failed, 1)

		require.NoError(t, f.saga.ReleaseReservation(ctx, failed[0].ID))
		p1, _ := f.inventory.GetByProduct(ctx, "p1")
		assert.Equal(t, 50, p1.Quantity)
		assert.Zero(t, p1.Reserved)
	})

	t.Run("rejects orders in other statuses", func(t *testing.T) {
		f := newSagaFixture(t, gateway.AlwaysApprove())
		f.addCustomer(t, "c1", 5000)
		f.addProduct(t, "p1", "100.00", 50)

		res, err := f.saga.PlaceOrder(ctx, apporder.PlaceOrderInput{
			CustomerID:    "c1",
			Items:         []domorder.LineItem{{ProductID: "p1", Quantity: 1}},
			PaymentMethod: "credit_card",
		})
		require.NoError(t, err)

		err = f.saga.ReleaseReservation(ctx, res.OrderID)
		var verr *apporder.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newSagaFixture(t, gateway.AlwaysApprove())
		err := f.saga.ReleaseReservation(ctx, "ghost")
		assert.ErrorIs(t, err, domorder.ErrNotFound)
	})
}

func TestGetOrder(t *testing.T) {
	ctx := context.Background()
	f := newSagaFixture(t, gateway.AlwaysApprove())
	f.addCustomer(t, "c1", 5000)
	f.addProduct(t, "p1", "100.00", 50)

	res, err := f.saga.PlaceOrder(ctx, apporder.PlaceOrderInput{
		CustomerID:    "c1",
		Items:         []domorder.LineItem{{ProductID: "p1", Quantity: 1}},
		PaymentMethod: "credit_card",
	})
	require.NoError(t, err)

	got, err := f.saga.GetOrder(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.OrderID, got.ID)

	_, err = f.saga.GetOrder(ctx, "")
	var verr *apporder.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.saga.GetOrder(ctx, "ghost")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}
