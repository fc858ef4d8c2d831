package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcust "github.com/shopflow/fulfillment/internal/domain/customer"
	dominv "github.com/shopflow/fulfillment/internal/domain/inventory"
	domorder "github.com/shopflow/fulfillment/internal/domain/order"
	dompay "github.com/shopflow/fulfillment/internal/domain/payment"
	domprod "github.com/shopflow/fulfillment/internal/domain/product"
)

func newOrder(t *testing.T, id, customerID string, createdAt time.Time, status domorder.Status) *domorder.Order {
	t.Helper()
	o, err := domorder.New(id, customerID,
		[]domorder.LineItem{{ProductID: "p1", Quantity: 1}},
		decimal.NewFromInt(100), "credit_card")
	require.NoError(t, err)
	o.CreatedAt = createdAt
	o.Status = status
	return o
}

func TestOrderRepositoryInsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	o := newOrder(t, "o1", "c1", time.Now(), domorder.StatusPending)

	require.NoError(t, repo.Insert(ctx, o))
	assert.ErrorIs(t, repo.Insert(ctx, o), domorder.ErrConflict)

	// Mutating the caller's copy must not leak into the store.
	o.Status = domorder.StatusConfirmed
	stored, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPending, stored.Status)

	require.NoError(t, repo.Update(ctx, o))
	stored, err = repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusConfirmed, stored.Status)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, newOrder(t, "o2", "c1", time.Now(), domorder.StatusPending)), domorder.ErrNotFound)
}

func TestOrderRepositoryRecentByCustomer(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 7; i++ {
		o := newOrder(t, fmt.Sprintf("o%d", i), "c1", base.Add(time.Duration(i)*time.Minute), domorder.StatusConfirmed)
		require.NoError(t, repo.Insert(ctx, o))
	}
	require.NoError(t, repo.Insert(ctx, newOrder(t, "other", "c2", base, domorder.StatusConfirmed)))

	recent, err := repo.RecentByCustomer(ctx, "c1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	// Newest first, only c1's orders, oldest two cut off.
	assert.Equal(t, "o6", recent[0].ID)
	assert.Equal(t, "o2", recent[4].ID)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].CreatedAt.After(recent[i-1].CreatedAt))
	}
}

func TestPaymentRepositoryTransactionUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()

	rec := &dompay.Record{
		ID:            "pay1",
		OrderID:       "o1",
		Amount:        decimal.NewFromInt(100),
		Method:        "credit_card",
		TransactionID: "txn_abc",
		Status:        dompay.StatusCompleted,
	}
	require.NoError(t, repo.Insert(ctx, rec))

	dup := *rec
	dup.ID = "pay2"
	assert.ErrorIs(t, repo.Insert(ctx, &dup), dompay.ErrDuplicateTxn)

	byTxn, err := repo.FindByTransaction(ctx, "txn_abc")
	require.NoError(t, err)
	assert.Equal(t, "pay1", byTxn.ID)

	_, err = repo.FindByTransaction(ctx, "txn_missing")
	assert.ErrorIs(t, err, dompay.ErrNotFound)

	byOrder, err := repo.FindByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, byOrder, 1)
}

func TestInventoryRepositoryUpdateIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository()
	rec, err := dominv.NewRecord("p1", 5, "Warehouse-A")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))

	_, err = repo.Update(ctx, "p1", func(r *dominv.Record) error {
		return r.Reserve(9)
	})
	var insufficient *dominv.InsufficientError
	require.ErrorAs(t, err, &insufficient)

	stored, err := repo.GetByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)
	assert.Zero(t, stored.Reserved)

	_, err = repo.Update(ctx, "missing", func(r *dominv.Record) error { return nil })
	assert.ErrorIs(t, err, dominv.ErrNotFound)
}

func TestCustomerRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomerRepository()

	c, err := domcust.New("c1", "Alice Johnson", "alice@example.com", decimal.NewFromInt(5000))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "c1", byEmail.ID)

	_, err = repo.Get(ctx, "ghost")
	var notFound *domcust.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestProductRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository()

	p, err := domprod.New("p1", "Wireless Bluetooth Headphones", "", decimal.RequireFromString("149.99"), "Electronics", "ELEC-HP-001")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, p))
	p2, err := domprod.New("p2", "Yoga Mat Premium", "", decimal.RequireFromString("29.99"), "Sports", "SPRT-YM-001")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, p2))

	bySKU, err := repo.FindBySKU(ctx, "ELEC-HP-001")
	require.NoError(t, err)
	assert.Equal(t, "p1", bySKU.ID)

	electronics, err := repo.ListByCategory(ctx, "Electronics")
	require.NoError(t, err)
	require.Len(t, electronics, 1)
	assert.Equal(t, "p1", electronics[0].ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.Get(ctx, "ghost")
	var notFound *domprod.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestSeedLoadsFixture(t *testing.T) {
	ctx := context.Background()
	customers := NewCustomerRepository()
	products := NewProductRepository()
	inventory := NewInventoryRepository()

	next := 0
	newID := func() string {
		next++
		return fmt.Sprintf("id-%d", next)
	}
	require.NoError(t, Seed(ctx, customers, products, inventory, newID))

	allCustomers, err := customers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, allCustomers, 6)

	allProducts, err := products.List(ctx)
	require.NoError(t, err)
	require.Len(t, allProducts, 15)

	for _, p := range allProducts {
		rec, err := inventory.GetByProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Positive(t, rec.Quantity)
		assert.NotEmpty(t, rec.WarehouseLocation)
	}
}
